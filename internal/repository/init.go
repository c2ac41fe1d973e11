package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/config"
	"github.com/customeros/mailvector/internal/models"
)

type Repositories struct {
	EmailVectorRepository interfaces.EmailVectorRepository
	FilterRuleRepository  interfaces.FilterRuleRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		EmailVectorRepository: NewEmailVectorRepository(db),
		FilterRuleRepository:  NewFilterRuleRepository(db),
	}
}

func MigrateDB(dbConfig *config.VectorDatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Email{},
		&models.UserFilterRule{},
	)

	sqlDB.Close()

	sqlDB, _ = db.DB()
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
