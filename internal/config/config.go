package config

import (
    "os"
    "strconv"
)

type Config struct {
    DatabaseURL         string
    Port                string
    RateProvider        string
    SimilarityThreshold float64
    StrictChannelFees   bool
}

func Load() Config {
    port := os.Getenv("PORT")
    if port == "" {
        port = "8080"
    }
    threshold := 0.45
    if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
            threshold = f
        }
    }
    strict := false
    if v := os.Getenv("STRICT_CHANNEL_FEES"); v != "" {
        if b, err := strconv.ParseBool(v); err == nil {
            strict = b
        }
    }
    return Config{
        DatabaseURL:         os.Getenv("DATABASE_URL"),
        Port:                port,
        RateProvider:        os.Getenv("RATE_PROVIDER"),
        SimilarityThreshold: threshold,
        StrictChannelFees:   strict,
    }
}
