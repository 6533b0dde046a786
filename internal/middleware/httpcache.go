package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sitecms/internal/apicache"
)

// CacheHeader reports whether a response came from the HTTP cache.
const CacheHeader = "X-Sitecms-Cache"

const defaultHTTPCacheMaxBody = 1 << 20 // 1 MiB

// HTTPCacheOptions selects which GET routes are cached.
type HTTPCacheOptions struct {
	// Paths lists cached path prefixes, e.g. "/api/content/".
	Paths        []string
	MaxBodyBytes int
	Disable      bool
	// Key maps a request path to its cache key. Returning false skips the
	// cache. Nil keys entries by the raw path.
	Key func(path string) (string, bool)
}

type cachedHTTPResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	BodyBase64  string `json:"body_base64"`
	Body        []byte `json:"-"`
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body         []byte
	maxBodyBytes int
	overflow     bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	if len(w.body)+len(data) > w.maxBodyBytes {
		w.overflow = true
		w.body = nil
		return
	}
	w.body = append(w.body, data...)
}

// HTTPCache serves public GET responses from cache. Entries are keyed by
// opts.Key (the request path by default) and stay until that key is cleared.
// Requests with a query string or an Authorization header bypass the cache.
func HTTPCache(cache *apicache.Cache, opts HTTPCacheOptions) gin.HandlerFunc {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultHTTPCacheMaxBody
	}

	return func(c *gin.Context) {
		if opts.Disable || cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if !matchCachePath(path, opts.Paths) || c.Request.URL.RawQuery != "" || c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}

		key := path
		if opts.Key != nil {
			var ok bool
			if key, ok = opts.Key(path); !ok {
				c.Next()
				return
			}
		}

		ctx := c.Request.Context()
		if raw, ok := cache.Peek(ctx, key); ok {
			if payload, ok := decodeCachedResponse(raw); ok {
				c.Header(CacheHeader, "hit")
				c.Data(payload.Status, payload.ContentType, payload.Body)
				c.Abort()
				return
			}
		}

		stamp := cache.Stamp(key)
		buffer := &cacheBodyWriter{
			ResponseWriter: c.Writer,
			maxBodyBytes:   opts.MaxBodyBytes,
		}
		c.Writer = buffer
		c.Header(CacheHeader, "miss")
		c.Next()

		status := c.Writer.Status()
		if status != http.StatusOK || buffer.overflow || len(buffer.body) == 0 {
			return
		}
		if cc := strings.ToLower(c.Writer.Header().Get("Cache-Control")); strings.Contains(cc, "no-store") || strings.Contains(cc, "private") {
			return
		}

		raw, err := json.Marshal(cachedHTTPResponse{
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			BodyBase64:  base64.StdEncoding.EncodeToString(buffer.body),
		})
		if err != nil {
			return
		}
		cache.PutIfCurrent(ctx, key, stamp, raw)
	}
}

func decodeCachedResponse(raw []byte) (cachedHTTPResponse, bool) {
	var payload cachedHTTPResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return cachedHTTPResponse{}, false
	}
	if payload.Status <= 0 {
		payload.Status = http.StatusOK
	}
	if payload.ContentType == "" {
		payload.ContentType = "application/json; charset=utf-8"
	}
	body, err := base64.StdEncoding.DecodeString(payload.BodyBase64)
	if err != nil {
		return cachedHTTPResponse{}, false
	}
	payload.Body = body
	return payload, true
}

func matchCachePath(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if p := strings.TrimSpace(prefix); p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
