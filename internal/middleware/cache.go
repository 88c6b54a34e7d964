package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const metaKey = "response_meta"

// WithResponseMeta seeds a metadata map on the request context. Handlers add
// entries (cache hit state, counters) and the response envelope carries the
// map back to the client together with the processing time.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(metaKey, map[string]interface{}{})
		c.Next()
		meta := metaMap(c)
		if _, set := meta["processing_time_ms"]; !set {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit marks whether the roster view came from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaMap(c)["cache_hit"] = hit
}

// ExtractMeta returns the metadata collected for the current request, or nil
// when none was seeded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if value, ok := c.Get(metaKey); ok {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	return nil
}

func metaMap(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	if c != nil {
		c.Set(metaKey, meta)
	}
	return meta
}
