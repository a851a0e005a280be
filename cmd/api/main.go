package main

import (
    "context"
    "net/http"
    "os"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "autoquote/internal/catalog"
    "autoquote/internal/config"
    "autoquote/internal/db"
    "autoquote/internal/pricing"
    "autoquote/internal/rate"
    "autoquote/internal/server"
)

func main() {
    cfg := config.Load()
    logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        logger.Fatal().Msg("DATABASE_URL not set. Please export DATABASE_URL before running.")
    }

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    pool, err := db.NewPool(ctx, cfg.DatabaseURL)
    if err != nil {
        logger.Fatal().Err(err).Msg("failed to connect db")
    }
    defer pool.Close()
    // Verify connectivity proactively
    if err := pool.Ping(ctx); err != nil {
        logger.Fatal().Err(err).Msg("database ping failed")
    }

    store := catalog.NewStore(pool)
    provider := rate.NewByName(cfg.RateProvider)
    calc := pricing.NewCalculator(store, store, provider, pricing.Options{
        SimilarityThreshold: cfg.SimilarityThreshold,
        StrictChannelFees:   cfg.StrictChannelFees,
        Logger:              logger,
    })
    r := server.New(calc, store, logger)

    srv := &http.Server{
        Addr:              ":" + cfg.Port,
        Handler:           r,
        ReadTimeout:       10 * time.Second,
        ReadHeaderTimeout: 10 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    providerName := cfg.RateProvider
    if providerName == "" {
        providerName = "static"
    }
    logger.Info().
        Str("port", cfg.Port).
        Str("rate_provider", providerName).
        Msg("api listening")
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        logger.Error().Err(err).Msg("server error")
        os.Exit(1)
    }
}
