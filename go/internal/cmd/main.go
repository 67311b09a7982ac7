package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/internal/gateway"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogging(config)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.BridgeConfig.URL = config.Nats.URL
	gatewayConfig.BridgeConfig.SubjectPrefix = config.Nats.SubjectPrefix
	gatewayConfig.BridgeConfig.ReconnectWait = config.Nats.ReconnectWait

	gatewayService, err := gateway.NewService(gatewayConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	server := setupServer(config, gatewayService)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down")
	if err := server.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close http server")
	}
}

func setupLogging(config *Config) {
	level, err := zerolog.ParseLevel(config.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(os.Stderr)
}
