package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ltyyb/surveybot/src/data"
	"github.com/ltyyb/surveybot/src/logging"
	"gorm.io/gorm"
)

// Base contains common configuration fields
type Base struct {
	Token    string
	GuildID  string
	MySQLDSN string
	RedisURL string
	Location *time.Location
}

// LoadBase loads common configuration (discord token, guild ID, MySQL DSN, Redis URL)
func LoadBase(db *gorm.DB) Base {
	log := logging.For("config")
	if db != nil {
		if err := data.LoadSettings(db); err != nil {
			log.Warn().Err(err).Msg("settings table unavailable, using environment only")
		}
	}

	dsn, err := data.GetMySQLDSN()
	if err != nil {
		log.Warn().Err(err).Msg("mysql dsn")
	}

	loc := time.Local
	if name := GetSetting("timezone", "SURVEY_TIMEZONE", ""); name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		} else {
			log.Warn().Err(err).Str("timezone", name).Msg("unknown timezone, using local time")
		}
	}

	return Base{
		Token:    GetSetting("discord_token", "DISCORD_TOKEN", ""),
		GuildID:  GetSetting("guild_id", "GUILD_ID", ""),
		MySQLDSN: dsn,
		RedisURL: GetSetting("redis_url", "REDIS_URL", ""),
		Location: loc,
	}
}

// Validate reports configuration the bot cannot run without.
func (b Base) Validate() error {
	var missing []string
	if strings.TrimSpace(b.Token) == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if strings.TrimSpace(b.MySQLDSN) == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if len(missing) > 0 {
		return errors.New("config: missing " + strings.Join(missing, ", "))
	}
	return nil
}

// GetSetting retrieves a setting with env fallback
func GetSetting(name, envKey, defaultValue string) string {
	val := data.GetSetting(name)
	if val == "" && envKey != "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = defaultValue
	}
	return val
}

func getBoolSetting(settingKey, envKey string, defaultValue bool) bool {
	if v := data.GetSetting(settingKey); v != "" {
		return parseBoolDefault(v, defaultValue)
	}
	if envKey != "" {
		if v := os.Getenv(envKey); v != "" {
			return parseBoolDefault(v, defaultValue)
		}
	}
	return defaultValue
}

func getIntSetting(settingKey, envKey string, defaultValue int) int {
	raw := GetSetting(settingKey, envKey, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloatSetting(settingKey, envKey string, defaultValue float64) float64 {
	raw := GetSetting(settingKey, envKey, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

// getDurationSetting accepts Go durations ("3h", "10m"); a bare number is minutes.
func getDurationSetting(settingKey, envKey string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(GetSetting(settingKey, envKey, ""))
	if raw == "" {
		return defaultValue
	}
	if minutes, err := strconv.Atoi(raw); err == nil {
		if minutes <= 0 {
			return defaultValue
		}
		return time.Duration(minutes) * time.Minute
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
