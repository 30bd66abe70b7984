package health

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestLive(t *testing.T) {
	state := &State{}
	router := NewRouter(state, prometheus.NewRegistry())

	assert.Equal(t, http.StatusOK, get(router, "/health/live").Code)

	state.SetShuttingDown()
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health/live").Code)
}

func TestReady(t *testing.T) {
	state := &State{}
	router := NewRouter(state, prometheus.NewRegistry())

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health/ready").Code)

	state.SetConnected(true)
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health/ready").Code)

	state.SetStartupComplete()
	response := get(router, "/health/ready")
	assert.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), `"startup_complete":true`)

	state.SetConnected(false)
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health/ready").Code)

	state.SetConnected(true)
	state.SetUnhealthy(true)
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health/ready").Code)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "Test counter."})
	registry.MustRegister(counter)
	counter.Add(3)

	response := get(NewRouter(&State{}, registry), "/metrics")

	assert.Equal(t, http.StatusOK, response.Code)
	assert.True(t, strings.Contains(response.Body.String(), "test_total 3"))
}
