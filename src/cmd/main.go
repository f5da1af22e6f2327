package main

import (
	"context"
	"os/signal"
	"syscall"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/dependency"
	"buildhub-client/src/internal/logger"
	"buildhub-client/src/internal/push"

	"github.com/sirupsen/logrus"
)

var log = *logrus.StandardLogger()

func main() {
	cfg := config.Load()
	logger.Init(cfg)

	log.Infof("Application %s is starting....", cfg.App.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := dependency.NewDependencyManager(cfg, push.DevPlatform{})
	defer deps.Close()

	deps.Runtime.Start(ctx)
	log.WithField("state", deps.Guard.State().String()).Info("Session runtime started")

	<-ctx.Done()
	log.Info("Shutting down...")
	deps.Runtime.Stop()
}
