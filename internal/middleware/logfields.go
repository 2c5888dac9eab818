package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

// LogFields tags access log lines with the authenticated caller and, for
// compliance reads, whether the tables snapshot was cached.
func LogFields(c *gin.Context) []zap.Field {
	var fields []zap.Field
	if value, ok := c.Get(ContextUserKey); ok {
		if claims, ok := value.(*models.JWTClaims); ok {
			fields = append(fields, zap.String("user_id", claims.UserID), zap.String("role", string(claims.Role)))
		}
	}
	if value, ok := c.Get(responseMetaKey); ok {
		if meta, ok := value.(map[string]interface{}); ok {
			if hit, ok := meta[metaCacheHit].(bool); ok {
				fields = append(fields, zap.Bool("cache_hit", hit))
			}
		}
	}
	return fields
}
