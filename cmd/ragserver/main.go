package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/JeremiasMeza/IA-Rag/app/bootstrap"
	"github.com/JeremiasMeza/IA-Rag/app/router"
	"github.com/JeremiasMeza/IA-Rag/internal/config"
	"github.com/JeremiasMeza/IA-Rag/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	router.Init()

	web.BConfig.AppName = "Document Retrieval Service"
	web.BConfig.CopyRequestBody = true
	if port, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	logger.Info("starting document retrieval service",
		zap.Int("port", web.BConfig.Listen.HTTPPort),
		zap.String("index_state", app.IndexState().String()))
	web.Run()
}
