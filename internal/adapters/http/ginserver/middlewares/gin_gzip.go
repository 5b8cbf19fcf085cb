package middlewares

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

var gzipWriters = sync.Pool{
	New: func() any { return gzip.NewWriter(io.Discard) },
}

func hasGzip(header string) bool {
	return strings.Contains(strings.ToLower(header), "gzip")
}

// gzipBody closes the gzip stream and the original body together.
type gzipBody struct {
	*gzip.Reader
	orig io.Closer
}

func (b gzipBody) Close() error {
	zerr := b.Reader.Close()
	if err := b.orig.Close(); err != nil {
		return err
	}
	return zerr
}

// GzipRequest transparently decompresses gzip request bodies.
func GzipRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasGzip(c.GetHeader("Content-Encoding")) {
			c.Next()
			return
		}
		zr, err := gzip.NewReader(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid gzip body"})
			return
		}
		c.Request.Body = gzipBody{Reader: zr, orig: c.Request.Body}
		c.Request.Header.Del("Content-Encoding")
		c.Request.Header.Del("Content-Length")
		c.Request.ContentLength = -1
		c.Next()
	}
}

// gzipWriter compresses the body once the first write shows a JSON payload
// with a status that carries one.
type gzipWriter struct {
	gin.ResponseWriter
	zw      *gzip.Writer
	started bool
}

func (w *gzipWriter) start() {
	w.started = true
	status := w.Status()
	if status < http.StatusOK || status == http.StatusNoContent || status == http.StatusNotModified {
		return
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		return
	}
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")

	zw, _ := gzipWriters.Get().(*gzip.Writer)
	zw.Reset(w.ResponseWriter)
	w.zw = zw
}

func (w *gzipWriter) Write(p []byte) (int, error) {
	if !w.started {
		w.start()
	}
	if w.zw != nil {
		return w.zw.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipWriter) finish() error {
	if w.zw == nil {
		return nil
	}
	err := w.zw.Close()
	w.zw.Reset(io.Discard)
	gzipWriters.Put(w.zw)
	w.zw = nil
	return err
}

// GzipResponse compresses JSON responses for clients that accept gzip.
func GzipResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasGzip(c.GetHeader("Accept-Encoding")) {
			c.Next()
			return
		}
		w := &gzipWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()
		if err := w.finish(); err != nil {
			_ = c.Error(err)
		}
		c.Writer = w.ResponseWriter
	}
}
