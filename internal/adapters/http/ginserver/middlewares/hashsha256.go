package middlewares

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/metricsnap/internal/misc"
)

const hashHeader = "HashSHA256"

// bufferedWriter holds the response until it can be signed.
type bufferedWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(code int) { w.status = code }

// WriteHeaderNow is deferred to flush like the rest of the response.
func (w *bufferedWriter) WriteHeaderNow() {}

func (w *bufferedWriter) Status() int {
	if w.status != 0 {
		return w.status
	}
	return w.ResponseWriter.Status()
}

func (w *bufferedWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *bufferedWriter) WriteString(s string) (int, error) { return w.buf.WriteString(s) }

// flush signs the buffered body and writes it to the wrapped writer.
func (w *bufferedWriter) flush(key string) error {
	if w.buf.Len() > 0 {
		w.Header().Set(hashHeader, misc.SumSHA256(w.buf.Bytes(), key))
	}
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	w.ResponseWriter.WriteHeader(status)
	_, err := w.ResponseWriter.Write(w.buf.Bytes())
	return err
}

// verifyBody checks a signed request body and restores it for handlers.
// Unsigned requests pass through.
func verifyBody(c *gin.Context, key string) bool {
	got := strings.TrimSpace(c.GetHeader(hashHeader))
	if got == "" || c.Request.Body == nil {
		return true
	}
	body, err := io.ReadAll(c.Request.Body)
	_ = c.Request.Body.Close()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) > 0 && !misc.VerifySHA256(body, key, got) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid hash"})
		return false
	}
	return true
}

// HashSHA256 rejects request bodies whose HashSHA256 header does not match
// and signs every non-empty response body. An empty key disables both.
func HashSHA256(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	if key == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		w := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = w
		if verifyBody(c, key) {
			c.Next()
		}
		c.Writer = w.ResponseWriter
		if err := w.flush(key); err != nil {
			_ = c.Error(err)
		}
	}
}
