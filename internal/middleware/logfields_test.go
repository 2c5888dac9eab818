package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

func TestLogFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/compliance/overview", nil)

	assert.Empty(t, LogFields(c))

	c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleModerator})
	SetCacheHit(c, true)

	fields := LogFields(c)
	assert.Len(t, fields, 3)
	assert.Equal(t, "user_id", fields[0].Key)
	assert.Equal(t, "u1", fields[0].String)
	assert.Equal(t, string(models.RoleModerator), fields[1].String)
	assert.Equal(t, "cache_hit", fields[2].Key)
}
