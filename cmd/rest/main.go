package main

import (
	"context"
	"log"

	"pdf-assistant-be/internal/bootstrap"
	"pdf-assistant-be/internal/config"
	"pdf-assistant-be/internal/server"
	"pdf-assistant-be/internal/tracer"
	"pdf-assistant-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	if err := database.Migrate(gormDB); err != nil {
		log.Panicf("Unable to migrate database: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Logger.Sync()

	// 4. Run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
