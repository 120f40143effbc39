package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aescanero/fftdetect/internal/application/detections"
	"github.com/aescanero/fftdetect/internal/application/health"
	"github.com/aescanero/fftdetect/internal/logging"
	"github.com/aescanero/fftdetect/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/fftdetect/pkg/domain"
)

var accessLine = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{6} (\S+) (\S+) (\S+) (\d{3}) - (\d+)$`)

type fakeProbe struct {
	err error
}

func (p *fakeProbe) NetworkInfo() (domain.NetworkInfo, error) {
	return domain.NetworkInfo{
		Localhost: "http://localhost:3000",
		Networks: []domain.NetworkInterface{
			{Interface: "eth0", IP: "10.1.2.3", URL: "http://10.1.2.3:3000"},
		},
	}, nil
}

func (p *fakeProbe) Memory(ctx context.Context) (domain.MemoryStats, error) {
	if p.err != nil {
		return domain.MemoryStats{}, p.err
	}
	return domain.MemoryStats{Total: 8192, Available: 4096, Percent: 50, Used: 4096, Free: 2048}, nil
}

func (p *fakeProbe) BootTime(ctx context.Context) (uint64, error) {
	return 1700000000, nil
}

type testServer struct {
	*Server
	dir     string
	probe   *fakeProbe
	metrics *prometheus.Collector
	logs    *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	journal, err := logging.NewJournal(dir)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	metrics := prometheus.NewCollector()
	probe := &fakeProbe{}

	srv := NewServer(&Config{
		Addr:     ":0",
		Recorder: detections.NewRecorder(journal, nil, metrics, logger),
		Reporter: health.NewReporter(probe),
		Journal:  journal,
		Metrics:  metrics,
		Logger:   logger,
	})

	return &testServer{Server: srv, dir: dir, probe: probe, metrics: metrics, logs: logs}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, DetectionsPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(t, req)
}

func (ts *testServer) accessLines() [][]string {
	var lines [][]string
	for _, entry := range ts.logs.All() {
		if m := accessLine.FindStringSubmatch(entry.Message); m != nil {
			lines = append(lines, m)
		}
	}
	return lines
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestCreateDetection(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, `{"frequency": 440, "magnitude": 0.5}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp DetectionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Detection recorded", resp.Message)
	assert.Equal(t, 440.0, resp.Detection.Frequency)
	assert.Equal(t, 0.5, resp.Detection.Magnitude)
	assert.Equal(t, "192.0.2.1", resp.Detection.ClientIP)
	assert.Equal(t, resp.Detection.ReceivedAt, resp.Detection.Timestamp)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	detectionsLog := readLines(t, filepath.Join(ts.dir, logging.DetectionsLogFile))
	require.Len(t, detectionsLog, 1)
	assert.Contains(t, detectionsLog[0], ` - Detection: {"frequency":440,"magnitude":0.5,`)

	requestsLog := readLines(t, filepath.Join(ts.dir, logging.RequestsLogFile))
	require.Len(t, requestsLog, 2)
	assert.True(t, strings.HasSuffix(requestsLog[0], " - Request from 192.0.2.1:"))
	assert.Equal(t, `Body: {"frequency": 440, "magnitude": 0.5}`, requestsLog[1])

	assert.Equal(t, 1, ts.logs.FilterMessage(`Received detection: {"frequency": 440, "magnitude": 0.5}`).Len())

	lines := ts.accessLines()
	require.Len(t, lines, 1)
	assert.Equal(t, []string{"192.0.2.1", "POST", DetectionsPath, "201"}, lines[0][1:5])
	assert.Equal(t, strconv.Itoa(w.Body.Len()), lines[0][5])
}

func TestCreateDetectionNullTimestampUsesServerTime(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, `{"frequency": 440, "magnitude": 1, "timestamp": null}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp DetectionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, resp.Detection.ReceivedAt, resp.Detection.Timestamp)
}

func TestCreateDetectionKeepsOrder(t *testing.T) {
	ts := newTestServer(t)

	for _, f := range []string{"100", "200", "300"} {
		w := ts.post(t, `{"frequency": `+f+`, "magnitude": 1}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	lines := readLines(t, filepath.Join(ts.dir, logging.DetectionsLogFile))
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"frequency":100`)
	assert.Contains(t, lines[1], `"frequency":200`)
	assert.Contains(t, lines[2], `"frequency":300`)
}

func TestCreateDetectionIsNotIdempotent(t *testing.T) {
	ts := newTestServer(t)

	var got []DetectionResponse
	for i := 0; i < 2; i++ {
		w := ts.post(t, `{"frequency": 50, "magnitude": 2}`)
		require.Equal(t, http.StatusCreated, w.Code)
		var resp DetectionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		got = append(got, resp)
	}

	assert.Len(t, readLines(t, filepath.Join(ts.dir, logging.DetectionsLogFile)), 2)
	assert.Equal(t, got[0].Detection.Frequency, got[1].Detection.Frequency)
	assert.NotEqual(t, got[0].Detection.ReceivedAt, got[1].Detection.ReceivedAt)
}

func TestCreateDetectionMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"missing magnitude", `{"frequency": 440}`},
		{"null frequency", `{"frequency": null, "magnitude": 1}`},
		{"zero frequency", `{"frequency": 0, "magnitude": 1}`},
		{"false frequency", `{"frequency": false, "magnitude": 1}`},
		{"empty string frequency", `{"frequency": "", "magnitude": 1}`},
		{"empty array magnitude", `{"frequency": 440, "magnitude": []}`},
		{"empty object magnitude", `{"frequency": 440, "magnitude": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			w := ts.post(t, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp MissingFieldsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "Missing required fields", resp.Error)
			assert.Equal(t, []string{"frequency", "magnitude"}, resp.Required)

			_, err := os.Stat(filepath.Join(ts.dir, logging.DetectionsLogFile))
			assert.True(t, os.IsNotExist(err))

			entries := ts.logs.FilterMessage("Error processing request from 192.0.2.1: Missing required fields").All()
			require.Len(t, entries, 1)
			assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)

			// the raw body is journaled even for rejected requests
			assert.Len(t, readLines(t, filepath.Join(ts.dir, logging.RequestsLogFile)), 2)
		})
	}
}

func TestCreateDetectionInvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"frequency": `},
		{"array", `[440, 1]`},
		{"wrong type", `{"frequency": "loud", "magnitude": 1}`},
		{"true magnitude", `{"frequency": 440, "magnitude": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			w := ts.post(t, tt.body)
			require.Equal(t, http.StatusInternalServerError, w.Code)

			var resp InternalErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "Internal server error", resp.Error)
			assert.NotEmpty(t, resp.Details)

			entries := ts.logs.FilterLevelExact(zapcore.ErrorLevel).All()
			require.Len(t, entries, 1)
			assert.True(t, strings.HasPrefix(entries[0].Message, "Error processing detection from 192.0.2.1: "))
		})
	}
}

func TestCreateDetectionJournalFailure(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, os.Mkdir(filepath.Join(ts.dir, logging.DetectionsLogFile), 0o755))

	w := ts.post(t, `{"frequency": 440, "magnitude": 1}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp InternalErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp.Error)
}

func TestAccessLineUsesForwardedFor(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, HealthPath, nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := ts.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)

	lines := ts.accessLines()
	require.Len(t, lines, 1)
	assert.Equal(t, []string{"203.0.113.7", "GET", HealthPath, "200"}, lines[0][1:5])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, key := range []string{"status", "timestamp", "uptime", "memory", "clientIp", "serverIp"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "192.0.2.1", body["clientIp"])
	assert.Equal(t, 1700000000.0, body["uptime"])

	serverIP := body["serverIp"].(map[string]any)
	assert.IsType(t, []any{}, serverIP["networks"])

	memory := body["memory"].(map[string]any)
	for _, key := range []string{"total", "available", "percent", "used", "free", "active", "inactive", "buffers", "cached", "shared", "slab"} {
		assert.Contains(t, memory, key)
	}

	assert.Equal(t, 1, ts.logs.FilterMessage("Health check from 192.0.2.1").Len())
}

func TestHealthProbeFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.probe.err = errors.New("permission denied")

	w := ts.do(t, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "health check failed: permission denied", resp.Error)

	errs := ts.logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, w.Header().Get(RequestIDHeader), errs[0].ContextMap()["request_id"])

	lines := ts.accessLines()
	require.Len(t, lines, 1)
	assert.Equal(t, "500", lines[0][4])
}

func TestPanicIsConvertedTo500(t *testing.T) {
	ts := newTestServer(t)
	ts.router.GET("/boom", func(c *gin.Context) {
		panic("sensor exploded")
	})

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sensor exploded", resp.Error)

	lines := ts.accessLines()
	require.Len(t, lines, 1)
	assert.Equal(t, []string{"GET", "/boom", "500"}, lines[0][2:5])
}

func TestRequestIDIsPreserved(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, HealthPath, nil)
	req.Header.Set(RequestIDHeader, "sensor-42")
	w := ts.do(t, req)

	assert.Equal(t, "sensor-42", w.Header().Get(RequestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	assert.Len(t, ts.accessLines(), 1)
}

func TestWrongMethod(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, DetectionsPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.post(t, `{"frequency": 440, "magnitude": 1}`).Code)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "fftdetect_detections_received_total 1")
	assert.Contains(t, body, `fftdetect_http_requests_total{method="POST",path="/api/detections",status="201"} 1`)
}

func TestServerUsesConfiguredAddr(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, ":0", ts.server.Addr)
}

func TestLifecycleLogsStayBelowInfo(t *testing.T) {
	ts := newTestServer(t)
	ts.server.Addr = "127.0.0.1:0"

	require.NoError(t, ts.Shutdown(context.Background()))
	require.NoError(t, ts.Start())

	// access.log receives INFO and above; lifecycle lines must not reach it
	assert.Zero(t, ts.logs.FilterLevelExact(zapcore.InfoLevel).Len())
	assert.NotZero(t, ts.logs.FilterMessage("starting HTTP server").Len())
}
