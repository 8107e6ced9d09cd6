package httplite

import (
	"path"
	"strings"
)

const (
	ContentTypeHTML  = "text/html"
	ContentTypeText  = "text/plain"
	ContentTypeBytes = "application/octet-stream"
)

var contentTypes = map[string]string{
	".html": ContentTypeHTML,
	".css":  "text/css",
	".js":   "application/javascript",
	".png":  "image/png",
}

// ContentTypeFor maps a file name to the content type served for it.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return ContentTypeBytes
}
