package config

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ModerationConfig holds the review workflow configuration.
type ModerationConfig struct {
	Base

	MainChannelID   string
	VerifyChannelID string
	ModeratorRoleID string
	AdminRoleID     string
	AdminUserIDs    []string
	SiteURL         string

	PushInterval     time.Duration
	ReviewInterval   time.Duration
	TransportRetry   time.Duration
	SilenceThreshold time.Duration
	OffHoursRecheck  time.Duration
	ActiveStartHour  int
	ActiveEndHour    int

	Quorum           int64
	ApproveRatio     float64
	RejectRetention  time.Duration
	RemindUnreviewed bool
	RegisterCommands bool

	Enabled bool
}

// LoadModerationConfig loads moderation bot configuration
func LoadModerationConfig(db *gorm.DB) ModerationConfig {
	base := LoadBase(db)

	return ModerationConfig{
		Base:            base,
		MainChannelID:   GetSetting("main_channel_id", "MAIN_CHANNEL_ID", ""),
		VerifyChannelID: GetSetting("verify_channel_id", "VERIFY_CHANNEL_ID", ""),
		ModeratorRoleID: GetSetting("moderator_role_id", "MODERATOR_ROLE_ID", ""),
		AdminRoleID:     GetSetting("admin_role_id", "ADMIN_ROLE_ID", ""),
		AdminUserIDs:    splitList(GetSetting("admin_user_ids", "ADMIN_USER_IDS", "")),
		SiteURL:         strings.TrimRight(GetSetting("site_url", "SITE_URL", "https://survey.example.org"), "/"),

		PushInterval:     getDurationSetting("push_interval", "PUSH_INTERVAL", 3*time.Hour),
		ReviewInterval:   getDurationSetting("review_interval", "REVIEW_INTERVAL", 10*time.Minute),
		TransportRetry:   getDurationSetting("transport_retry", "TRANSPORT_RETRY", 15*time.Second),
		SilenceThreshold: getDurationSetting("silence_threshold", "SILENCE_THRESHOLD", 48*time.Hour),
		OffHoursRecheck:  getDurationSetting("off_hours_recheck", "OFF_HOURS_RECHECK", time.Hour),
		ActiveStartHour:  getIntSetting("active_start_hour", "ACTIVE_START_HOUR", 9),
		ActiveEndHour:    getIntSetting("active_end_hour", "ACTIVE_END_HOUR", 23),

		Quorum:           int64(getIntSetting("review_quorum", "REVIEW_QUORUM", 5)),
		ApproveRatio:     getFloatSetting("approve_ratio", "APPROVE_RATIO", 0.6),
		RejectRetention:  getDurationSetting("reject_retention", "REJECT_RETENTION", 24*time.Hour),
		RemindUnreviewed: getBoolSetting("remind_unreviewed", "REMIND_UNREVIEWED", true),
		RegisterCommands: getBoolSetting("register_slash_commands", "REGISTER_SLASH_COMMANDS", true),

		Enabled: getBoolSetting("enable_moderation", "ENABLE_MODERATION", true),
	}
}

// IsAdminUser reports whether the Discord user ID is listed as an administrator.
func (c ModerationConfig) IsAdminUser(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SurveyConfig controls the survey package provider.
type SurveyConfig struct {
	PackagePath    string
	ReloadInterval time.Duration
}

// LoadSurveyConfig loads survey package configuration
func LoadSurveyConfig() SurveyConfig {
	return SurveyConfig{
		PackagePath:    GetSetting("survey_package_path", "SURVEY_PACKAGE_PATH", "surveys/entrance.json"),
		ReloadInterval: getDurationSetting("survey_reload_interval", "SURVEY_RELOAD_INTERVAL", time.Minute),
	}
}

// APIConfig holds HTTP API configuration
type APIConfig struct {
	Port              string
	JWTSecret         string
	AllowedOrigins    []string
	AdminPasswordHash string
	RSAKeyPath        string
	RateLimit         int
	RateWindow        time.Duration
	Enabled           bool
}

// LoadAPIConfig loads HTTP API configuration
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Port:              GetSetting("api_port", "PORT", "8080"),
		JWTSecret:         GetSetting("jwt_secret", "JWT_SECRET", ""),
		AllowedOrigins:    splitList(GetSetting("api_allowed_origins", "API_ALLOWED_ORIGINS", "http://localhost:3000")),
		AdminPasswordHash: GetSetting("admin_password_hash", "ADMIN_PASSWORD_HASH", ""),
		RSAKeyPath:        GetSetting("rsa_private_key_path", "RSA_PRIVATE_KEY_PATH", ""),
		RateLimit:         getIntSetting("api_rate_limit", "API_RATE_LIMIT", 30),
		RateWindow:        getDurationSetting("api_rate_window", "API_RATE_WINDOW", time.Minute),
		Enabled:           getBoolSetting("enable_api", "ENABLE_API", true),
	}
}
