package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledIsNoop(t *testing.T) {
	tel, err := Init(context.Background(), Config{Enabled: false}, "test", "dev")
	require.NoError(t, err)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestInitEnabledRequiresEndpoint(t *testing.T) {
	_, err := Init(context.Background(), Config{Enabled: true}, "test", "dev")
	require.Error(t, err)
}

func TestMetricVectorsAcceptRecords(t *testing.T) {
	// The vectors are registered once on the default registry; recording
	// must not panic for the label sets the adapters use.
	HTTPRequestsTotal.WithLabelValues("GET", "/api/file-collections", "200").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/api/file-collections").Observe(0.01)
	SyncRunsTotal.WithLabelValues("in_sync").Inc()
	SyncFilesProcessed.Add(2)
	SearchesTotal.WithLabelValues("false").Inc()
	RAGQueriesTotal.WithLabelValues("true").Inc()
}
