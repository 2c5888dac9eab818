package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-compliance-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	metaCacheHit    = "cache_hit"
	metaRequestID   = "request_id"
	metaElapsed     = "processing_time_ms"
	metaStartKey    = "response_meta_start"
)

// ResponseMeta prepares the meta block carried by JSON envelopes. Compliance
// reads report whether the raw tables came from the snapshot cache.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta[metaRequestID] = id
		}
		c.Set(responseMetaKey, meta)
		c.Set(metaStartKey, start)
		c.Next()
	}
}

// SetCacheHit flags whether the current response was served from cached tables.
func SetCacheHit(c *gin.Context, hit bool) {
	meta := Meta(c)
	if meta == nil {
		meta = map[string]interface{}{}
		c.Set(responseMetaKey, meta)
	}
	meta[metaCacheHit] = hit
}

// Meta returns the meta block for the current request, stamped with the
// elapsed time so far. It is nil until ResponseMeta or SetCacheHit ran.
func Meta(c *gin.Context) map[string]interface{} {
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	if start, ok := c.Get(metaStartKey); ok {
		meta[metaElapsed] = time.Since(start.(time.Time)).Milliseconds()
	}
	return meta
}
