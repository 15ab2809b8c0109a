package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"salespipe/internal/domain/idempotency"
	"salespipe/internal/repository"
	"salespipe/internal/transport/httpdto"
	salespipe_errors "salespipe/pkg/errors"
	"salespipe/pkg/logger"
	"salespipe/pkg/tasks"

	"github.com/gin-gonic/gin"
)

const IdempotencyKeyHeader = "Idempotency-Key"

var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// IdempotencyMiddleware deduplicates client-initiated mutating requests that
// share an Idempotency-Key, caching the first response and replaying it for
// later submissions of the same key within the TTL.
func IdempotencyMiddleware(repo repository.IdempotencyRepository, tracker *tasks.Tracker, l *logger.Logger, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return func(c *gin.Context) {
		if !mutatingMethods[c.Request.Method] {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		tenantID := TenantID(c)
		if tenantID == "" {
			// No replay scope without a tenant; the gate is meaningless.
			c.Next()
			return
		}

		if !idempotency.ValidKey(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, httpdto.NewErrorResponse(
				"Idempotency-Key must be between 16 and 64 characters",
				httpdto.CodeInvalidIdempotencyKey,
			))
			return
		}

		ctx := c.Request.Context()
		now := time.Now()

		rec, err := repo.Get(ctx, key, tenantID)
		switch {
		case err != nil && errors.Is(err, salespipe_errors.ErrNotFound):
			// First sight of the key.
		case err != nil:
			// Store trouble must not block the request; we trade the
			// deduplication guarantee for availability here.
			l.Errorf("idempotency lookup for key %s: %s", key, err)
			c.Next()
			return
		case rec.Expired(now):
			// Treated as absent; the reserve below takes over the row.
		case rec.Status == idempotency.StatusCompleted:
			if rec.RequestPath != c.Request.URL.Path || rec.RequestMethod != c.Request.Method {
				c.AbortWithStatusJSON(http.StatusConflict, httpdto.NewErrorResponse(
					"idempotency key was already used for a different endpoint",
					httpdto.CodeIdempotencyKeyReused,
				))
				return
			}
			replay(c, rec)
			return
		case rec.Status == idempotency.StatusProcessing:
			conflict(c)
			return
		case rec.Status == idempotency.StatusFailed:
			// The first attempt errored; retrying under the same key is
			// allowed and re-enters processing via the reserve below.
		}

		won, err := repo.Reserve(ctx, idempotency.Record{
			Key:           key,
			TenantID:      tenantID,
			RequestPath:   c.Request.URL.Path,
			RequestMethod: c.Request.Method,
			Status:        idempotency.StatusProcessing,
			ExpiresAt:     now.Add(ttl),
		})
		if err != nil {
			l.Errorf("idempotency reserve for key %s: %s", key, err)
			c.Next()
			return
		}
		if !won {
			// Lost the race. The winner may already have finished, so check
			// for a replayable record before rejecting.
			if rec, err := repo.Get(ctx, key, tenantID); err == nil &&
				rec.Status == idempotency.StatusCompleted && !rec.Expired(time.Now()) {
				replay(c, rec)
				return
			}
			conflict(c)
			return
		}

		// Capture the response at the writer boundary instead of patching
		// serialization internals.
		capture := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = capture

		c.Next()

		status := c.Writer.Status()
		body := capture.body.Bytes()
		finalStatus := idempotency.StatusFailed
		if status >= 200 && status < 300 {
			finalStatus = idempotency.StatusCompleted
		}

		// The response is already on its way to the client; recording it is
		// best-effort but its lifetime is tracked so shutdown can drain it.
		tracker.Go(func() {
			persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Complete(persistCtx, key, tenantID, finalStatus, status, body); err != nil {
				l.Errorf("store idempotent response for key %s: %s", key, err)
			}
		})
	}
}

// replay writes the cached response verbatim, tagged so clients can tell a
// replay from a fresh execution. The new request body is deliberately
// ignored: the key guarantees the operation happened once, not that the
// parameters were validated again.
func replay(c *gin.Context, rec idempotency.Record) {
	status := rec.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}

	var body map[string]any
	if err := json.Unmarshal(rec.ResponseBody, &body); err != nil || body == nil {
		c.Data(status, "application/json; charset=utf-8", rec.ResponseBody)
		c.Abort()
		return
	}
	meta, _ := body["meta"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["idempotentReplay"] = true
	body["meta"] = meta

	c.AbortWithStatusJSON(status, body)
}

func conflict(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusConflict, httpdto.NewErrorResponse(
		"a request with this idempotency key is currently being processed",
		httpdto.CodeConcurrentRequest,
	))
}

// bodyCaptureWriter tees the response body while it streams to the client.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
