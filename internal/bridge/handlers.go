package bridge

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/sandbox"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/utils"
)

// Handlers serves the HTTP bridge
type Handlers struct {
	service   *Service
	validator *utils.SizeValidator
	metrics   *monitoring.Metrics
	breakers  func() map[string]resilience.State
	started   time.Time
}

// NewHandlers creates the HTTP handlers. breakers may be nil.
func NewHandlers(service *Service, metrics *monitoring.Metrics, breakers func() map[string]resilience.State) *Handlers {
	return &Handlers{
		service:   service,
		validator: utils.DefaultPayloadValidator(),
		metrics:   metrics,
		breakers:  breakers,
		started:   time.Now(),
	}
}

// RunScript handles POST /v1/scripts/run. The body is {script, context}; the
// answer is the merged context or {error}.
func (h *Handlers) RunScript(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResult{Error: "failed to read request body"})
		return
	}
	if err := h.validator.ValidateSize(body); err != nil {
		writeJSON(c, http.StatusRequestEntityTooLarge, errorResult{Error: err.Error()})
		return
	}

	var req types.RunScriptRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResult{Error: "invalid request: " + err.Error()})
		return
	}

	merged, err := h.service.RunScript(c.Request.Context(), req.Script, req.Context)
	if err != nil {
		_ = c.Error(err)
		writeJSON(c, statusFor(err), errorResult{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, merged)
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status": "healthy",
		"busy":   h.service.Busy(),
		"pool":   h.service.PoolStats(),
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}
	if h.breakers != nil {
		states := map[string]string{}
		for host, state := range h.breakers() {
			states[host] = state.String()
		}
		resp["breakers"] = states
	}
	c.JSON(http.StatusOK, resp)
}

// MetricsJSON handles GET /v1/metrics
func (h *Handlers) MetricsJSON(c *gin.Context) {
	writeJSON(c, http.StatusOK, struct {
		monitoring.MetricsSnapshot
		Pool sandbox.PoolStats `json:"pool"`
	}{h.metrics.Snapshot(), h.service.PoolStats()})
}

// writeJSON encodes v with sonic.
func writeJSON(c *gin.Context, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}
