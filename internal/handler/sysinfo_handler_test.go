package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSysInfoLive_StreamsUntilClientLeaves(t *testing.T) {
	h := NewSysInfoHandler(time.Now().Add(-time.Minute), 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/sysinfo/live", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Live(c))
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	events := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.GreaterOrEqual(t, len(events), 2)

	var stats LiveStats
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(events[0], "data: ")), &stats))
	assert.Positive(t, stats.Goroutines)
	assert.NotEmpty(t, stats.HeapAlloc)
	assert.True(t, strings.HasPrefix(stats.Uptime, "1m"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(3*512*1024))
}
