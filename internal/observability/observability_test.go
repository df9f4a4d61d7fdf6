package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)

	logger.Info("dropped")
	logger.Warn("kept", "region", "CA")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "CA", line["region"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("info", "text", &buf).Info("opening source", "source", "data_wa.tdv")
	assert.Contains(t, buf.String(), "source=data_wa.tdv")
}

func TestMetricsForTesting_IsolatedRegistry(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.RecordsAccepted.Add(3)
	a.RecordsRejected.WithLabelValues("malformed").Inc()

	assert.InDelta(t, 3.0, testutil.ToFloat64(a.RecordsAccepted), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.RecordsAccepted), 0)

	families, err := a.Gatherer().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "climate_records_accepted_total")
	assert.Contains(t, names, "climate_records_rejected_total")
}

func TestMetrics_Push(t *testing.T) {
	var gotPath string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	m := NewMetricsForTesting()
	m.LinesRead.Inc()

	require.NoError(t, m.Push(context.Background(), gateway.URL, "climate"))
	assert.Equal(t, "/metrics/job/climate", gotPath)
}

func TestMetrics_PushError(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	err := NewMetricsForTesting().Push(context.Background(), gateway.URL, "climate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
