package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/customeros/mailvector/internal/logger"
	"github.com/customeros/mailvector/internal/tracing"
)

type Config struct {
	AppConfig            *AppConfig
	Logger               *logger.Config
	Tracing              *tracing.JaegerConfig
	VectorDatabaseConfig *VectorDatabaseConfig
	EmbeddingAPIConfig   *EmbeddingAPIConfig
	EmbeddingCacheConfig *EmbeddingCacheConfig
	PipelineConfig       *PipelineConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:            &AppConfig{},
		Logger:               &logger.Config{},
		Tracing:              &tracing.JaegerConfig{},
		VectorDatabaseConfig: &VectorDatabaseConfig{},
		EmbeddingAPIConfig:   &EmbeddingAPIConfig{},
		EmbeddingCacheConfig: &EmbeddingCacheConfig{},
		PipelineConfig:       &PipelineConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailvector config: %v", err)
	}

	return config, nil
}
