package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	recording_routers "github.com/sachin-pal89/Saarathi-Recorder/api/recording-api/router"
	"github.com/sachin-pal89/Saarathi-Recorder/config"
	"github.com/sachin-pal89/Saarathi-Recorder/migrations"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/connectors"
	storage_objects "github.com/sachin-pal89/Saarathi-Recorder/pkg/storages/object-storage"
)

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("unable to initialize config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("unable to read application config: %v", err)
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
	)
	if err != nil {
		log.Fatalf("unable to create logger: %v", err)
	}
	defer logger.Sync()

	postgres, err := connectors.NewPostgresConnector(cfg.PostgresConfig, logger)
	if err != nil {
		logger.Fatalf("unable to connect postgres: %v", err)
	}
	defer postgres.Close()

	sqlDB, err := postgres.DB(context.Background()).DB()
	if err != nil {
		logger.Fatalf("unable to get sql handle: %v", err)
	}
	if err := migrations.Run(sqlDB, cfg.PostgresConfig.DBName); err != nil {
		logger.Fatalf("unable to migrate schema: %v", err)
	}

	storage, err := storage_objects.NewStorage(cfg.AssetStoreConfig, logger)
	if err != nil {
		logger.Fatalf("unable to create object storage: %v", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id"},
		AllowCredentials: true,
	}))
	engine.MaxMultipartMemory = cfg.MaxUploadBytes

	recording_routers.HealthCheckRoutes(cfg, engine, logger, postgres)
	recording_routers.RecordingRoutes(cfg, engine, logger, postgres, storage)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("%s %s listening on %s", cfg.Name, cfg.Version, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}
