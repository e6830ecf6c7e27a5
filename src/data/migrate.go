package data

import (
	"fmt"

	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/shared/survey"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the bot owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(survey.Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	log := logging.For("data")
	log.Info().Int("tables", len(survey.Models())).Msg("schema migrated")
	return nil
}
