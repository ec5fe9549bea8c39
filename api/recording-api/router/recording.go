package recording_routers

import (
	"github.com/gin-gonic/gin"

	recording_api "github.com/sachin-pal89/Saarathi-Recorder/api/recording-api/api"
	internal_service "github.com/sachin-pal89/Saarathi-Recorder/api/recording-api/internal/services"
	"github.com/sachin-pal89/Saarathi-Recorder/config"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/connectors"
	storage_objects "github.com/sachin-pal89/Saarathi-Recorder/pkg/storages/object-storage"
)

// RecordingRoutes mounts the recording surface on the engine.
func RecordingRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, postgres connectors.PostgresConnector, storage storage_objects.Storage) {
	logger.Info("RecordingRoutes added to engine.")

	stitcher := internal_service.NewStitcherService(logger, storage)
	recordingService := internal_service.NewRecordingService(logger, postgres, storage, stitcher)
	api := recording_api.NewRecordingApi(cfg, logger, recordingService, storage)

	apiv1 := engine.Group("/api/recordings")
	{
		apiv1.POST("", api.Create)
		apiv1.GET("", api.List)
		apiv1.GET("/:id", api.Get)
		apiv1.POST("/:id/segments", api.UploadSegment)
		apiv1.POST("/:id/finalize", api.Finalize)
	}
}
