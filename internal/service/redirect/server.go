package redirect

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aosc-dev/repo-manifest/internal/config"
)

// formFieldVariant is the form field carrying the selected download option.
const formFieldVariant = "distro-variant"

// livekitDisplayName labels live image downloads on the landing pages.
const livekitDisplayName = "Livekit"

// pageTemplates renders the download landing pages.
var pageTemplates = template.Must(template.New("").Parse(`
{{define "thank-you"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="1; url={{.URL}}">
<title>Downloading AOSC OS {{.Variant}} ({{.Arch}})</title>
</head>
<body>
<h1>Thank you for choosing AOSC OS</h1>
<p>Your download of AOSC OS {{.Variant}} ({{.Arch}}) should begin shortly.
If it does not, <a href="{{.URL}}">click here</a>.</p>
<p>SHA-256 checksum: <code>{{.SHA256}}</code></p>
</body>
</html>{{end}}

{{define "not-found"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Release not found</title>
</head>
<body>
<h1>Release not found</h1>
<p>No release of AOSC OS {{.Variant}} ({{.Arch}}) is currently available.</p>
<p>Please head back to the <a href="https://aosc.io/downloads/">downloads page</a>.</p>
</body>
</html>{{end}}
`))

// newRouter wires the download endpoints over the shared store.
func newRouter(store *Store, settings *config.Config) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(pageTemplates)

	engine.POST("/download/alt", downloadRelease(store, settings))
	engine.POST("/download/livekit", downloadImage(store, settings))

	// Plain GET visits go back to the downloads page.
	fallback := func(c *gin.Context) {
		c.Redirect(http.StatusFound, settings.DownloadsPageURL)
	}
	engine.GET("/download/alt", fallback)
	engine.GET("/download/livekit", fallback)

	return engine
}

// downloadRelease serves system release downloads keyed "<variant>.<arch>".
// Option values that are already URLs are redirected to as-is, which lets
// the downloads page mix direct links with manifest-backed options.
func downloadRelease(store *Store, settings *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		option := c.PostForm(formFieldVariant)
		if strings.HasPrefix(option, "https://") {
			c.Redirect(http.StatusFound, option)

			return
		}

		name, arch, _ := strings.Cut(option, ".")

		tarball, ok := store.Release(option)
		if !ok {
			c.HTML(http.StatusNotFound, "not-found", gin.H{
				"Variant": name,
				"Arch":    arch,
			})

			return
		}

		c.HTML(http.StatusOK, "thank-you", gin.H{
			"Variant": name,
			"Arch":    tarball.Arch,
			"URL":     releaseURL(settings, tarball.Path),
			"SHA256":  tarball.SHA256Sum,
		})
	}
}

// downloadImage serves live image downloads keyed by architecture.
func downloadImage(store *Store, settings *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		arch := c.PostForm(formFieldVariant)

		tarball, ok := store.Image(arch)
		if !ok {
			c.HTML(http.StatusNotFound, "not-found", gin.H{
				"Variant": livekitDisplayName,
				"Arch":    arch,
			})

			return
		}

		c.HTML(http.StatusOK, "thank-you", gin.H{
			"Variant": livekitDisplayName,
			"Arch":    tarball.Arch,
			"URL":     releaseURL(settings, tarball.Path),
			"SHA256":  tarball.SHA256Sum,
		})
	}
}

// releaseURL joins a manifest-relative path onto the releases base URL.
func releaseURL(settings *config.Config, path string) string {
	return strings.TrimSuffix(settings.ReleasesBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
