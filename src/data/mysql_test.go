package data

import (
	"strings"
	"testing"
)

func TestGetMySQLDSN(t *testing.T) {
	t.Run("explicit dsn wins", func(t *testing.T) {
		t.Setenv("MYSQL_DSN", "u:p@tcp(db:3306)/survey")
		t.Setenv("MYSQL_HOST", "ignored")
		got, err := GetMySQLDSN()
		if err != nil || got != "u:p@tcp(db:3306)/survey" {
			t.Fatalf("dsn = %q, %v", got, err)
		}
	})

	t.Run("built from parts", func(t *testing.T) {
		t.Setenv("MYSQL_DSN", "")
		t.Setenv("MYSQL_HOST", "db")
		t.Setenv("MYSQL_USER", "bot")
		t.Setenv("MYSQL_PASSWORD", "secret")
		t.Setenv("MYSQL_DATABASE", "survey")
		got, err := GetMySQLDSN()
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(got, "bot:secret@tcp(db:3306)/survey") || !strings.Contains(got, "parseTime=true") {
			t.Fatalf("dsn = %q", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv("MYSQL_DSN", "")
		t.Setenv("MYSQL_HOST", "")
		t.Setenv("MYSQL_DATABASE", "")
		if _, err := GetMySQLDSN(); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestEnsureParam(t *testing.T) {
	tests := []struct {
		in, key, val, want string
	}{
		{"u@tcp(h)/db", "parseTime", "true", "u@tcp(h)/db?parseTime=true"},
		{"u@tcp(h)/db?loc=UTC", "parseTime", "true", "u@tcp(h)/db?loc=UTC&parseTime=true"},
		{"u@tcp(h)/db?parseTime=false", "parseTime", "true", "u@tcp(h)/db?parseTime=false"},
	}
	for _, tt := range tests {
		if got := ensureParam(tt.in, tt.key, tt.val); got != tt.want {
			t.Errorf("ensureParam(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
