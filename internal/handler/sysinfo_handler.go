package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
)

// SysInfoHandler shows host and process statistics.
type SysInfoHandler struct {
	started  time.Time
	interval time.Duration
}

// NewSysInfoHandler creates a handler whose live stream ticks every interval.
func NewSysInfoHandler(started time.Time, interval time.Duration) *SysInfoHandler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &SysInfoHandler{started: started, interval: interval}
}

// SysInfo is the static part of the page.
type SysInfo struct {
	Hostname  string
	OS        string
	Arch      string
	NumCPU    int
	GoVersion string
	LiveStats
}

// LiveStats is pushed on every tick of the live stream.
type LiveStats struct {
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  string `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
}

func (h *SysInfoHandler) live() LiveStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return LiveStats{
		Uptime:     time.Since(h.started).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  formatBytes(ms.HeapAlloc),
		NumGC:      ms.NumGC,
	}
}

// Index renders a snapshot.
func (h *SysInfoHandler) Index(c echo.Context) error {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	info := SysInfo{
		Hostname:  host,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
		LiveStats: h.live(),
	}
	return c.Render(http.StatusOK, "sysinfo.html", newPage(c, "System", info))
}

// Live streams LiveStats as server-sent events until the client goes away.
func (h *SysInfoHandler) Live(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		payload, err := json.Marshal(h.live())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
			return nil
		}
		res.Flush()

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
