package redirect

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/aosc-dev/repo-manifest/internal/config"
	"github.com/aosc-dev/repo-manifest/internal/manifest"
)

func testSettings() *config.Config {
	return &config.Config{
		ListenAddress:    "127.0.0.1:0",
		ManifestDir:      "/nonexistent",
		ReleasesBaseURL:  "https://releases.aosc.io/",
		DownloadsPageURL: "https://aosc.io/downloads/",
	}
}

func postForm(t *testing.T, engine *gin.Engine, path, option string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{formFieldVariant: {option}}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	return rec
}

// TestDownloadRelease serves a landing page with the download URL and
// checksum for a known option.
func TestDownloadRelease(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := NewStore()
	store.SetReleases(map[string]manifest.Tarball{
		"base.amd64": {
			Arch:      "amd64",
			Date:      "20240301",
			Path:      "os-amd64/aosc-os_base_20240301_amd64.tar.xz",
			SHA256Sum: "deadbeef",
		},
	})

	engine := newRouter(store, testSettings())

	rec := postForm(t, engine, "/download/alt", "base.amd64")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(),
		"https://releases.aosc.io/os-amd64/aosc-os_base_20240301_amd64.tar.xz")
	require.Contains(t, rec.Body.String(), "deadbeef")
	require.Contains(t, rec.Body.String(), "base")
}

// TestDownloadReleasePassthrough redirects URL-valued options untouched.
func TestDownloadReleasePassthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := newRouter(NewStore(), testSettings())

	rec := postForm(t, engine, "/download/alt", "https://mirror.example.com/direct.tar.xz")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://mirror.example.com/direct.tar.xz", rec.Header().Get("Location"))
}

// TestDownloadReleaseNotFound renders the not-found page for unknown options.
func TestDownloadReleaseNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := newRouter(NewStore(), testSettings())

	rec := postForm(t, engine, "/download/alt", "base.mips64")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "mips64")
}

// TestDownloadImage serves live image downloads keyed by architecture.
func TestDownloadImage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := NewStore()
	store.SetImages(map[string]manifest.Tarball{
		"amd64": {
			Arch:      "amd64",
			Date:      "20240301",
			Path:      "livekit/aosc-os_livekit_20240301_amd64.iso",
			SHA256Sum: "cafebabe",
		},
	})

	engine := newRouter(store, testSettings())

	rec := postForm(t, engine, "/download/livekit", "amd64")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Livekit")
	require.Contains(t, rec.Body.String(), "cafebabe")

	rec = postForm(t, engine, "/download/livekit", "riscv64")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestFallbackRedirect sends plain GET visits back to the downloads page.
func TestFallbackRedirect(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := newRouter(NewStore(), testSettings())

	for _, path := range []string{"/download/alt", "/download/livekit"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "https://aosc.io/downloads/", rec.Header().Get("Location"))
	}
}
