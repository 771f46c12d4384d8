package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"envelope-service/pkg/config"
	"envelope-service/pkg/envelope"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Config    *config.Config
	Store     Pinger
	Telemetry interface{ Enabled() bool }
	StartTime time.Time
	env       envelope.Builder
}

func NewHandler(cfg *config.Config, store Pinger, telemetry interface{ Enabled() bool }) *Handler {
	return &Handler{
		Config:    cfg,
		Store:     store,
		Telemetry: telemetry,
		StartTime: time.Now(),
		env:       envelope.Builder{FlattenPayload: cfg.Envelope.FlattenPayload},
	}
}

// HealthHandler godoc
// @Summary Service health
// @Description Reports store connectivity, host load and uptime
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	uptimeSeconds := time.Since(h.StartTime).Seconds()
	uptimeSeconds = float64(int(uptimeSeconds*10)) / 10.0

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	storeInfo := map[string]interface{}{
		"driver":    h.Config.Store.Driver,
		"connected": true,
	}
	if err := h.Store.Ping(ctx); err != nil {
		status = "degraded"
		storeInfo["connected"] = false
		storeInfo["error"] = err.Error()
	}

	host := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		host["cpuPercent"] = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		host["memUsedPercent"] = vm.UsedPercent
		host["memTotalMB"] = vm.Total / 1024 / 1024
	}

	resp := map[string]interface{}{
		"status": status,
		"store":  storeInfo,
		"host":   host,
		"envelope": map[string]interface{}{
			"flattenPayload": h.Config.Envelope.FlattenPayload,
		},
		"telemetry": map[string]interface{}{
			"enabled": h.Telemetry != nil && h.Telemetry.Enabled(),
		},
		"uptimeSeconds": uptimeSeconds,
	}

	respond(w, h.env.Success(resp, ""))
}

type outcomeRow struct {
	Outcome string `json:"outcome"`
	Status  int    `json:"status"`
	Family  string `json:"family"`
	Message string `json:"message"`
}

// OutcomesHandler godoc
// @Summary Outcome table
// @Description Lists every outcome with its fixed status code and body family
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /outcomes [get]
func (h *Handler) OutcomesHandler(w http.ResponseWriter, r *http.Request) {
	rows := make([]outcomeRow, 0, len(envelope.Outcomes()))
	for _, o := range envelope.Outcomes() {
		rows = append(rows, outcomeRow{
			Outcome: o.String(),
			Status:  o.Status(),
			Family:  string(o.Family()),
			Message: o.DefaultMessage(),
		})
	}

	respond(w, h.env.Success(map[string]interface{}{"outcomes": rows}, ""))
}

func (h *Handler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, h.env.NotFound(
		envelope.Messages("no route for "+r.Method+" "+r.URL.Path),
		envelope.NotFound.DefaultMessage(),
	))
}

func (h *Handler) MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, h.env.MethodNotAllowed(
		envelope.Messages("method "+r.Method+" is not allowed on "+r.URL.Path),
		envelope.MethodNotAllowed.DefaultMessage(),
	))
}
