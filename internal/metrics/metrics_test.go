package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/projects", 200, 123*time.Millisecond)
	RecordHTTPRequest("GET", "/api/projects", 200, 45*time.Millisecond)
	RecordHTTPRequest("POST", "/api/projects/:id/process", 409, 2*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/projects", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/projects/:id/process", "409")))
}

func TestProjectsProcessedTotal(t *testing.T) {
	ProjectsProcessedTotal.Reset()

	ProjectsProcessedTotal.WithLabelValues("completed").Inc()
	ProjectsProcessedTotal.WithLabelValues("completed").Inc()
	ProjectsProcessedTotal.WithLabelValues("failed").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(ProjectsProcessedTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ProjectsProcessedTotal.WithLabelValues("failed")))
}

func TestQueueDepthGauge(t *testing.T) {
	QueueDepth.Set(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(QueueDepth))

	QueueDepth.Set(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(QueueDepth))
}
