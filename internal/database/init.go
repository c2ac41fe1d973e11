package database

import (
	"gorm.io/gorm"

	"github.com/customeros/mailvector/internal/config"
)

func InitVectorDatabase(cfg *config.VectorDatabaseConfig) (*gorm.DB, error) {
	db, err := NewConnection(&DatabaseConfig{
		DBName:          cfg.DBName,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		MaxConn:         cfg.MaxConn,
		MaxIdleConn:     cfg.MaxIdleConn,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		LogLevel:        cfg.LogLevel,
		SSLMode:         cfg.SSLMode,
	})
	if err != nil {
		return nil, err
	}

	// pgvector extension must exist before the embedding column migrates
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, err
	}

	return db, nil
}
