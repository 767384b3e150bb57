package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

func newAdminRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config := logging.DefaultLoggerConfig()
	config.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(config)
	require.NoError(t, err)

	h := NewAdminHandlers(logger)
	r := gin.New()
	r.GET("/admin/log-levels", h.LogLevels)
	r.PUT("/admin/log-levels", h.SetLogLevel)
	return r
}

func TestLogLevelsRoundTrip(t *testing.T) {
	r := newAdminRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/log-levels", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"worker":"INFO"`)

	w = httptest.NewRecorder()
	body := strings.NewReader(`{"channel":"worker","level":"error"}`)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/admin/log-levels", body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"worker":"ERROR"`)
}

func TestSetLogLevelValidation(t *testing.T) {
	r := newAdminRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/admin/log-levels", strings.NewReader(`{"channel":"worker","level":"verbose"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/admin/log-levels", strings.NewReader(`{"channel":"bogus","level":"debug"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
