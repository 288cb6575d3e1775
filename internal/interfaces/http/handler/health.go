package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

const defaultCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler handles liveness and readiness endpoints
type HealthHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	timeout   time.Duration
	checks    map[string]HealthCheck
	order     []string
}

// NewHealthHandler creates a HealthHandler
func NewHealthHandler(name, version string) *HealthHandler {
	return &HealthHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		timeout:   defaultCheckTimeout,
		checks:    make(map[string]HealthCheck),
	}
}

// AddCheck registers a named readiness check. A nil check is ignored.
func (h *HealthHandler) AddCheck(name string, check HealthCheck) *HealthHandler {
	if check == nil {
		return h
	}
	if _, exists := h.checks[name]; !exists {
		h.order = append(h.order, name)
	}
	h.checks[name] = check
	return h
}

// SetTimeout bounds each readiness check
func (h *HealthHandler) SetTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

// HealthResponse represents the readiness report
// @name HandlerHealthResponse
type HealthResponse struct {
	Status    string            `json:"status" example:"ok"`
	Name      string            `json:"name" example:"ledger-api"`
	Version   string            `json:"version" example:"1.0.0"`
	GoVersion string            `json:"go_version" example:"go1.25.5"`
	Uptime    string            `json:"uptime" example:"1h30m45s"`
	Checks    map[string]string `json:"checks"`
}

// Health godoc
// @ID           getHealth
// @Summary      Readiness check
// @Description  Runs every dependency check; answers 503 when one fails
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} DegradedResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    make(map[string]string, len(h.checks)),
	}

	healthy := true
	for _, name := range h.order {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			healthy = false
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if !healthy {
		resp.Status = "degraded"
		body := dto.NewErrorResponseWithRequestID(dto.ErrCodeUnavailable, "One or more dependencies are unavailable", requestIDFrom(c))
		body.Data = resp
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	h.Success(c, resp)
}

// Live godoc
// @ID           getLiveness
// @Summary      Liveness check
// @Description  Answers as long as the process serves HTTP
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[map[string]string]
// @Router       /healthz [get]
func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, map[string]string{"status": "ok"})
}
