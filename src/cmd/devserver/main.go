package main

import (
	"os"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/devserver"
	"buildhub-client/src/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = *logrus.StandardLogger()

func main() {
	cfg := config.Load()
	logger.Init(cfg)

	secret := os.Getenv("DEV_JWT_SECRET")
	if secret == "" {
		secret = "buildhub-dev-secret"
	}

	addr := os.Getenv("DEV_SERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	router := gin.Default()
	srv := devserver.New(cfg, secret)
	srv.SetupRoutes(router)

	log.Infof("Dev backend listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatalf("Error starting dev server: %v", err)
	}
}
