package ops

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func TestRouter(t *testing.T) {
	h := Router(testLogger(), Route{
		Path: "/info",
		Handler: func(w http.ResponseWriter, _ *http.Request) {
			WriteJSON(w, http.StatusOK, map[string]int{"stores": 2})
		},
	})

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"health", http.MethodGet, "/health", http.StatusOK, `{"status":"ok"}`},
		{"custom route", http.MethodGet, "/info", http.StatusOK, `{"stores":2}`},
		{"wrong method", http.MethodPost, "/info", http.StatusMethodNotAllowed, ""},
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv, err := Start("127.0.0.1:0", Router(testLogger()), testLogger())
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	require.NoError(t, srv.Shutdown())
}

func TestStartBindFailure(t *testing.T) {
	srv, err := Start("127.0.0.1:0", Router(testLogger()), testLogger())
	require.NoError(t, err)
	defer srv.Shutdown()

	_, err = Start(srv.Addr(), Router(testLogger()), testLogger())
	assert.Error(t, err)
}
