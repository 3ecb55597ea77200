package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "chatty", OutputPaths: []string{"stderr"}})

	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Desugar().Core().Enabled(zap.InfoLevel))
}

func TestWithContext_AddsRequestID(t *testing.T) {
	// GIVEN: An observed logger and a request that went through RequestID
	core, logs := observer.New(zap.InfoLevel)
	log := (&Logger{zap.New(core).Sugar()}).WithComponent("http")

	var ctx context.Context
	h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	// WHEN
	log.WithContext(ctx).Infow("hello")
	log.WithContext(context.Background()).Infow("bare")

	// THEN
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	assert.Equal(t, "http", entries[0].ContextMap()["component"])
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
}
