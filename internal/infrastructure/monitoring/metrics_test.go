package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreIsolated(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.ConnectionOpened("existing")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ConnectionsActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ConnectionsActive))
}

func TestConnectionLifecycle(t *testing.T) {
	m := NewMetrics()

	m.ConnectionOpened("bootstrap")
	m.ConnectionOpened("existing")
	m.ConnectionClosed("local")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsOpened.WithLabelValues("bootstrap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsClosed.WithLabelValues("local")))
}

func TestFrameCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordFrame("chat_message")
	m.RecordFrame("chat_message")
	m.RecordMalformedFrame()
	m.RecordTranscriptSent()
	m.RecordSubmission("rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesReceived.WithLabelValues("chat_message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesMalformed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranscriptsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("rejected")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ConnectionOpened("existing")
		m.ConnectionClosed("error")
		m.RecordFrame("image")
		m.RecordMalformedFrame()
		m.RecordTranscriptSent()
		m.RecordSubmission("sent")
		m.RecordAPICall("GET /models", "200", time.Millisecond)
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		m.RecordWSMessage("in", "transcript")
		m.IncWSConnections()
		m.DecWSConnections()
		NewTimer(m, "GET /sessions").Stop("200")
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/sessions/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/4", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/sessions/:id", "204")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "devbackend_http_requests_total"))
}
