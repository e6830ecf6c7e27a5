package config

import (
	"testing"
	"time"

	"github.com/ltyyb/surveybot/src/data"
	"github.com/ltyyb/surveybot/src/shared/survey"
	"github.com/ltyyb/surveybot/src/testutil"
)

func TestSettingPrecedence(t *testing.T) {
	db := testutil.NewDB(t)
	db.Create(&survey.Setting{Name: "review_quorum", Value: "7", Active: true})
	db.Create(&survey.Setting{Name: "push_interval", Value: "90", Active: true})
	db.Create(&survey.Setting{Name: "approve_ratio", Value: "0.75", Active: true})
	t.Cleanup(data.ResetSettings)

	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/survey")
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("REVIEW_QUORUM", "3")
	t.Setenv("REVIEW_INTERVAL", "5m")
	t.Setenv("ADMIN_USER_IDS", "11, 22;33")

	cfg := LoadModerationConfig(db)

	if cfg.Quorum != 7 {
		t.Fatalf("quorum = %d, want settings table value 7", cfg.Quorum)
	}
	if cfg.PushInterval != 90*time.Minute {
		t.Fatalf("push interval = %v, want 90m", cfg.PushInterval)
	}
	if cfg.ReviewInterval != 5*time.Minute {
		t.Fatalf("review interval = %v, want env value 5m", cfg.ReviewInterval)
	}
	if cfg.ApproveRatio != 0.75 {
		t.Fatalf("ratio = %v", cfg.ApproveRatio)
	}
	if cfg.SilenceThreshold != 48*time.Hour || cfg.ActiveStartHour != 9 || cfg.ActiveEndHour != 23 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !cfg.IsAdminUser("22") || cfg.IsAdminUser("44") {
		t.Fatalf("admin list = %v", cfg.AdminUserIDs)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateReportsMissing(t *testing.T) {
	err := Base{}.Validate()
	if err == nil {
		t.Fatal("empty base validated")
	}
	if got := err.Error(); got != "config: missing DISCORD_TOKEN, MYSQL_DSN" {
		t.Fatalf("error = %q", got)
	}
}

func TestParseHelpers(t *testing.T) {
	cases := map[string]bool{"yes": true, "ON": true, "0": false, "off": false}
	for in, want := range cases {
		if got := parseBoolDefault(in, !want); got != want {
			t.Errorf("parseBoolDefault(%q) = %v", in, got)
		}
	}
	if !parseBoolDefault("maybe", true) {
		t.Error("fallback ignored")
	}

	t.Setenv("X_DURATION", "-5")
	if got := getDurationSetting("", "X_DURATION", time.Hour); got != time.Hour {
		t.Errorf("negative minutes accepted: %v", got)
	}
	t.Setenv("X_DURATION", "1h30m")
	if got := getDurationSetting("", "X_DURATION", time.Hour); got != 90*time.Minute {
		t.Errorf("duration = %v", got)
	}
}
