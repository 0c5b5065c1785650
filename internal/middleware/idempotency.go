package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	replayHeader         = "Idempotent-Replay"
	idempotencyKeyPrefix = "mtolling:idempotency:"
	// IdempotencyTTL is how long a replayable response is kept.
	IdempotencyTTL = 10 * time.Minute
	// inFlightTTL bounds how long a claimed key blocks duplicates when the handler never finishes.
	inFlightTTL = 30 * time.Second
)

// replayRecord is stored per key. A zero Status marks a request still in flight.
type replayRecord struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// bodyRecorder tees the response body so it can be stored for replay.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware deduplicates mutating requests that carry an
// Idempotency-Key. The host resends fixes, boot triggers and settings after a
// reconnect:
//   - the first request claims the key and runs; a 2xx response is kept for replay
//   - a repeat with the same body gets the stored response
//   - a repeat while the first is still running gets 409
//   - a repeat with a different body gets 422
//
// Non-2xx responses release the key. A nil client or a Redis error disables replay.
func IdempotencyMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if redisClient == nil || key == "" || !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		body, err := readBody(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "read request body: " + err.Error()})
			return
		}

		ctx := c.Request.Context()
		storeKey := idempotencyKeyPrefix + c.Request.Method + ":" + c.FullPath() + ":" + key
		fp := fingerprint(c.Request.Method, c.FullPath(), body)

		claimed, err := claimKey(ctx, redisClient, storeKey, fp)
		if err != nil {
			c.Next()
			return
		}
		if !claimed {
			replay(c, redisClient, storeKey, fp)
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status < 200 || status > 299 {
			redisClient.Del(ctx, storeKey)
			return
		}
		_ = saveRecord(ctx, redisClient, storeKey, replayRecord{
			Fingerprint: fp,
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		}, IdempotencyTTL)
	}
}

func replay(c *gin.Context, client *redis.Client, key, fp string) {
	record, err := loadRecord(c.Request.Context(), client, key)
	if err != nil {
		// Released or unreadable: serve the request normally.
		c.Next()
		return
	}

	switch {
	case record.Fingerprint != fp:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency key reused with a different request"})
	case record.Status == 0:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is still in progress"})
	default:
		contentType := record.ContentType
		if contentType == "" {
			contentType = "application/json; charset=utf-8"
		}
		c.Header(replayHeader, "true")
		c.Data(record.Status, contentType, record.Body)
		c.Abort()
	}
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// readBody drains the request body and puts it back for the handler.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func fingerprint(method, route string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func claimKey(ctx context.Context, client *redis.Client, key, fp string) (bool, error) {
	data, err := json.Marshal(replayRecord{Fingerprint: fp})
	if err != nil {
		return false, err
	}
	return client.SetNX(ctx, key, data, inFlightTTL).Result()
}

func loadRecord(ctx context.Context, client *redis.Client, key string) (*replayRecord, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var record replayRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode replay record: %w", err)
	}
	return &record, nil
}

func saveRecord(ctx context.Context, client *redis.Client, key string, record replayRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, ttl).Err()
}
