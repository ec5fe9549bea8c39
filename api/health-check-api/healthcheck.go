package health_check_api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sachin-pal89/Saarathi-Recorder/config"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/connectors"
)

type HealthCheckApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	postgres connectors.PostgresConnector
}

func New(cfg *config.AppConfig, logger commons.Logger, postgres connectors.PostgresConnector) *HealthCheckApi {
	return &HealthCheckApi{
		cfg:      cfg,
		logger:   logger,
		postgres: postgres,
	}
}

// Healthz reports process liveness.
func (api *HealthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   api.cfg.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness reports whether the metadata store is reachable.
func (api *HealthCheckApi) Readiness(c *gin.Context) {
	if err := api.postgres.Ping(c.Request.Context()); err != nil {
		api.logger.Errorf("readiness check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
