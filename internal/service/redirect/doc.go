// Package redirect serves download requests from the AOSC OS downloads
// page, resolving form-selected options against the manifest documents
// written by the generator and reacting to manifest rewrites on the fly.
package redirect
