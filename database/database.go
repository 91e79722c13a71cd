package database

import (
	"podcast-app/internal/domain/podcasts"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB(dsn string, log logrus.FieldLogger) {
	if dsn == "" {
		log.Fatal("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	if err := Migrate(db); err != nil {
		log.WithError(err).Fatal("AutoMigrate error")
	}

	DB = db
	log.Info("Connected and migrated successfully")
}

// Migrate creates or updates the tables owned by this service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&podcasts.Podcast{},
		&podcasts.Episode{},
	); err != nil {
		return errors.Wrap(err, "auto-migrate")
	}
	return nil
}
