package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games", nil))

	require.Len(t, hook.Entries, 1)
	e := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, e.Level)
	assert.Equal(t, "/api/games", e.Data["path"])
	assert.Equal(t, http.StatusTeapot, e.Data["status"])
	assert.Equal(t, 15, e.Data["bytes"])
}

func TestWebSocketLogFields(t *testing.T) {
	logger, hook := test.NewNullLogger()

	LogWebSocketConnect(logger, "c1", "10.0.0.1:5000")
	assert.Equal(t, "c1", hook.LastEntry().Data["client"])

	LogWebSocketDisconnect(logger, "c1", "10.0.0.1:5000", errors.New("going away"))
	assert.Contains(t, hook.LastEntry().Data, "error")

	LogWebSocketDisconnect(logger, "c1", "10.0.0.1:5000", nil)
	assert.NotContains(t, hook.LastEntry().Data, "error")
}
