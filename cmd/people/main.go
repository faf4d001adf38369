// Command people runs the example person operations against MongoDB and
// prints each result. Step failures are reported on stderr and do not stop
// the run; configuration or connection failures exit with status 1.
package main

import (
	"context"
	"os"

	"github.com/gogotex/people/internal/config"
	"github.com/gogotex/people/internal/database"
	"github.com/gogotex/people/internal/person/repository"
	"github.com/gogotex/people/internal/person/service"
	"github.com/gogotex/people/internal/walkthrough"
	"github.com/gogotex/people/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Debugf("startup: LOG_LEVEL=%s database=%s collection=%s", logger.LevelString(), cfg.MongoDB.Database, cfg.MongoDB.Collection)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Timeout, cfg.MongoDB.MaxAttempts)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			logger.Warnf("disconnect: %v", err)
		}
	}()

	repo := repository.NewMongoRepo(db.Collection(cfg.MongoDB.Collection))
	if err := repo.EnsureSchema(ctx); err != nil {
		// the application-side validation still applies
		logger.Warnf("could not install collection validator: %v", err)
	}

	runner := walkthrough.New(service.New(repo), walkthrough.Options{Parallel: cfg.Walkthrough.Parallel})
	report := runner.Run(ctx)
	logger.Infof("walkthrough finished: %d steps, %d failed", len(report.Steps), len(report.Failed()))
}
