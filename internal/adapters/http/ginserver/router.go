package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handler, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/metrics", h.Live)

	r.GET("/snapshots", h.ListSnapshots)
	r.GET("/snapshots/:name", h.GetSnapshot)
	r.PUT("/snapshots/:name", h.PutSnapshot)
	r.DELETE("/snapshots/:name", h.DeleteSnapshot)
	r.POST("/snapshots/:name/capture", h.CaptureSnapshot)

	r.POST("/value", h.Value)
	r.GET("/diff", h.Diff)

	return r
}
