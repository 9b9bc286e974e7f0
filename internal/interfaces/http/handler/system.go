package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/fleetrent/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Build metadata, overridable at link time:
//
//	go build -ldflags "-X .../handler.buildVersion=1.4.0 -X .../handler.buildCommit=abc1234"
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

const serviceName = "Fleet Rental Ledger API"

// SystemHandler serves service metadata and liveness endpoints.
type SystemHandler struct {
	BaseHandler
	startedAt time.Time
}

func NewSystemHandler() *SystemHandler {
	return &SystemHandler{
		startedAt: time.Now(),
	}
}

// SystemInfoResponse describes the running service instance.
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name       string `json:"name" example:"Fleet Rental Ledger API"`
	Version    string `json:"version" example:"1.4.0"`
	Commit     string `json:"commit" example:"abc1234"`
	GoVersion  string `json:"go_version" example:"go1.25.5"`
	Goroutines int    `json:"goroutines" example:"12"`
	StartedAt  string `json:"started_at" example:"2026-01-23T12:00:00Z"`
	Uptime     string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns service build and runtime information including version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:       serviceName,
		Version:    buildVersion,
		Commit:     buildCommit,
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		StartedAt:  h.startedAt.UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Liveness probe; answers without touching the database
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}))
}
