package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/influmart/influmart/internal/app"
	"github.com/influmart/influmart/internal/config"
	httpx "github.com/influmart/influmart/internal/http"
	"github.com/influmart/influmart/internal/observability/logger"
)

func main() {
	// .env es opcional; en producción las variables llegan del entorno.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("INFLUMART_CONFIG"), "ruta al YAML de configuración")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init(logger.Config{Env: "dev", Level: "info", ServiceName: "influmart"})
		logger.L().Fatal("configuración inválida", logger.Err(err))
	}

	logger.Init(logger.Config{
		Env:         cfg.Env,
		Level:       cfg.Log.Level,
		ServiceName: "influmart",
	})
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	application, err := app.New(ctx, cfg)
	cancel()
	if err != nil {
		logger.L().Fatal("no se pudo inicializar la aplicación", logger.Err(err))
	}
	defer application.Close()

	srv := httpx.NewServer(cfg.HTTP.Addr, application.Handler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.L().Fatal("servidor terminó con error", logger.Err(err))
		}
	case sig := <-stop:
		logger.L().Info("señal recibida, apagando", logger.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.L().Error("shutdown con errores", logger.Err(err))
		}
	}
}
