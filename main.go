package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arvand/learnhub/config"
	"github.com/arvand/learnhub/models"
	"github.com/arvand/learnhub/routes"
	"github.com/arvand/learnhub/tasks"
	"github.com/arvand/learnhub/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Course{},
		&models.Article{},
		&models.Comment{},
		&models.CommentHistory{},
		&models.ContentVisit{},
	)

	buf := utils.NewRedisVisitBuffer(utils.GetRedis())

	scheduler, err := tasks.StartScheduler(tasks.NewVisitFlushJob(db, buf))
	if err != nil {
		utils.Sugar.Fatalf("failed to start scheduler: %v", err)
	}

	r := routes.SetupRouter(db, buf)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Sugar.Infof("Starting server on port %s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Sugar.Fatalf("server stopped with error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Sugar.Info("shutting down")

	// Stop scheduling new flush runs, let an in-flight one finish.
	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Sugar.Errorf("forced shutdown: %v", err)
	}

	utils.Sugar.Info("server exited")
}
