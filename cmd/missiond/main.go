package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/skyward/groundlink/internal/missionserver"
	"github.com/skyward/groundlink/pkg/util"
)

type appConfig struct {
	Server missionserver.Config `yaml:"server"`
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	godotenv.Load()

	cfg, err := util.LoadConfig[appConfig](*cfgPath)
	if err != nil {
		log.Fatalf("FATAL: Error reading configuration file: %v", err)
	}
	if v := os.Getenv("MISSIOND_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8090"
	}

	srv := missionserver.New(cfg.Server).Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt

	log.Println("Interrupt received. Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
