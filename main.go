// @title AI Answer Sheet Evaluation API
// @version 1.0
// @description Backend for exam answer-sheet submission and AI-assisted evaluation.

// @host localhost:5000
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"exam_eval_backend/internal/app"
	"exam_eval_backend/internal/config"
	"exam_eval_backend/pkg/configwatcher"
	"exam_eval_backend/pkg/logger"
	"flag"
	"log"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	go configwatcher.WatchConfig(*configDir+"/config.yaml", application.Reload)

	application.Run()
}
