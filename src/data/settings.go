package data

import (
	"sync/atomic"

	"github.com/ltyyb/surveybot/src/shared/survey"
	"gorm.io/gorm"
)

var settings atomic.Pointer[map[string]string]

// LoadSettings replaces the cached settings with the active rows of the settings table.
func LoadSettings(db *gorm.DB) error {
	var rows []survey.Setting
	if err := db.Where("active = ?", true).Find(&rows).Error; err != nil {
		return err
	}
	m := make(map[string]string, len(rows))
	for _, s := range rows {
		m[s.Name] = s.Value
	}
	settings.Store(&m)
	return nil
}

// LookupSetting returns a cached setting and whether it exists.
func LookupSetting(name string) (string, bool) {
	m := settings.Load()
	if m == nil {
		return "", false
	}
	v, ok := (*m)[name]
	return v, ok
}

// GetSetting returns a cached setting or "" (call LoadSettings first).
func GetSetting(name string) string {
	v, _ := LookupSetting(name)
	return v
}

// ResetSettings clears the cache.
func ResetSettings() {
	settings.Store(nil)
}
