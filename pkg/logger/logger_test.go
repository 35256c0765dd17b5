package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/scrud-api/pkg/config"
	"github.com/noah-isme/scrud-api/pkg/middleware/requestid"
)

func TestNewHonoursLevel(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "warn", Format: "json"}}
	l, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	cfg.Log.Level = "loud"
	l, err = New(cfg)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestGinMiddlewareLogsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(requestid.Middleware(), GinMiddleware(zap.New(core)))
	r.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/students/7", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/students/7", fields["path"])
	assert.Equal(t, "/students/:id", fields["route"])
	assert.Equal(t, int64(http.StatusNoContent), fields["status"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
}

func TestGinMiddlewareLevelFollowsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)))
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
