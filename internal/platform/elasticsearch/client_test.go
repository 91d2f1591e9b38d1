package elasticsearch

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"lostfound_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewClient_EmptyURLDisablesSearch(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	client, err := NewClient(&config.Config{}, zap.New(core))
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.Equal(t, 1, logs.Len())
}

func TestZapLogger_LogRoundTrip(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &ZapLogger{logger: zap.New(core)}

	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Scheme: "http", Host: "es:9200", Path: "/items/_search"}}
	require.NoError(t, l.LogRoundTrip(req, &http.Response{StatusCode: 200}, nil, time.Now(), time.Millisecond))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.EqualValues(t, 200, fields["status_code"])
}
