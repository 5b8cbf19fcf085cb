package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vshulcz/metricsnap/internal/domain"
	"github.com/vshulcz/metricsnap/internal/services/monitor"
	"github.com/vshulcz/metricsnap/internal/services/notify"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

// Handler exposes live and stored metric snapshots over HTTP.
type Handler struct {
	svc *monitor.Service
	log *zap.Logger
}

// NewHandler wires a monitor service into a gin-compatible HTTP handler.
func NewHandler(svc *monitor.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// Ping handles `GET /ping`.
func (h *Handler) Ping(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Live handles `GET /metrics?prefix=` with the current source snapshot.
func (h *Handler) Live(c *gin.Context) {
	snap, err := h.svc.Live(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		h.httpError(c, err)
		return
	}
	writeSnapshot(c, http.StatusOK, snap)
}

// ListSnapshots handles `GET /snapshots`.
func (h *Handler) ListSnapshots(c *gin.Context) {
	names, err := h.svc.Names(c.Request.Context())
	if err != nil {
		h.httpError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": names})
}

// GetSnapshot handles `GET /snapshots/:name`.
func (h *Handler) GetSnapshot(c *gin.Context) {
	capture, err := h.svc.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.httpError(c, err)
		return
	}
	writeSnapshot(c, http.StatusOK, capture.Snapshot)
}

// PutSnapshot handles `PUT /snapshots/:name` with a snapshot document body.
func (h *Handler) PutSnapshot(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	snap, err := metricsnap.FromJSON(body)
	if err != nil {
		h.httpError(c, err)
		return
	}
	capture, err := h.svc.Put(requestContext(c), c.Param("name"), snap)
	if err != nil {
		h.httpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, captureInfo(capture))
}

// CaptureSnapshot handles `POST /snapshots/:name/capture?prefix=`.
func (h *Handler) CaptureSnapshot(c *gin.Context) {
	capture, err := h.svc.Capture(requestContext(c), c.Param("name"), c.Query("prefix"))
	if err != nil {
		h.httpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, captureInfo(capture))
}

// DeleteSnapshot handles `DELETE /snapshots/:name`.
func (h *Handler) DeleteSnapshot(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("name")); err != nil {
		h.httpError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type valueRequest struct {
	Labels   *metricsnap.Labels `json:"labels"`
	Snapshot string             `json:"snapshot"`
	Path     string             `json:"path"`
}

// Value handles `POST /value`. A missing labels field selects the only
// metric at path; `{}` matches unlabeled metrics only.
func (h *Handler) Value(c *gin.Context) {
	var req valueRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	var labels metricsnap.Labels
	if req.Labels != nil {
		labels = *req.Labels
	}
	v, err := h.svc.ValueAt(c.Request.Context(), req.Snapshot, req.Path, labels)
	if err != nil {
		h.httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": v})
}

// Diff handles `GET /diff?before=&after=&prefix=&diff_gauge=`. Without after
// the live snapshot is used.
func (h *Handler) Diff(c *gin.Context) {
	diffGauge := false
	if v := c.Query("diff_gauge"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "diff_gauge must be a boolean"})
			return
		}
		diffGauge = b
	}
	snap, err := h.svc.Diff(c.Request.Context(), c.Query("before"), c.Query("after"), c.Query("prefix"), diffGauge)
	if err != nil {
		h.httpError(c, err)
		return
	}
	writeSnapshot(c, http.StatusOK, snap)
}

// requestContext carries the client address to capture observers.
func requestContext(c *gin.Context) context.Context {
	return notify.WithClientIP(c.Request.Context(), c.ClientIP())
}

func captureInfo(c domain.Capture) gin.H {
	return gin.H{
		"name":     c.Name,
		"paths":    c.Snapshot.Len(),
		"taken_at": c.TakenAt,
	}
}

func writeSnapshot(c *gin.Context, status int, snap *metricsnap.Snapshot) {
	data, err := snap.ToJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}

func (h *Handler) httpError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidName), errors.Is(err, metricsnap.ErrMalformed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, metricsnap.ErrNoMetrics),
		errors.Is(err, metricsnap.ErrMultipleMetrics),
		errors.Is(err, metricsnap.ErrConflictingLabels):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("uri", c.Request.RequestURI), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
