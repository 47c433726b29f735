package http

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

var cacheableExt = map[string]bool{
	".css": true, ".js": true, ".png": true, ".jpg": true, ".jpeg": true,
	".webp": true, ".gif": true, ".svg": true, ".ico": true, ".woff": true, ".woff2": true,
}

// registerStatic serves the frontend assets for every path no API route
// claims. API misses still get a JSON 404 instead of an HTML fallback.
func registerStatic(router *gin.Engine, dir string, debug bool) {
	fs := http.FileServer(http.Dir(dir))

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
			return
		}
		if !debug {
			setCacheHeaders(c, c.Request.URL.Path)
		}
		fs.ServeHTTP(c.Writer, c.Request)
	})
}

func setCacheHeaders(c *gin.Context, reqPath string) {
	ext := strings.ToLower(path.Ext(reqPath))
	switch {
	case ext == ".html" || ext == "":
		c.Header("Cache-Control", "no-cache")
	case cacheableExt[ext]:
		c.Header("Cache-Control", "public, max-age=86400, stale-while-revalidate=604800")
	}
}
