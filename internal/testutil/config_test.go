package testutil

import (
	"net/url"
	"testing"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("defaults to local test database port 55432", func(t *testing.T) {
		for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
			t.Setenv(k, "")
		}

		cfg := DefaultTestDBConfig()
		if cfg.Host != "localhost" {
			t.Errorf("expected Host=localhost, got %s", cfg.Host)
		}
		if cfg.Port != "55432" {
			t.Errorf("expected Port=55432 (test DB), got %s", cfg.Port)
		}
		if cfg.User != "promptjobs" || cfg.DBName != "promptjobs" {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("respects TEST_DB_PORT environment variable", func(t *testing.T) {
		t.Setenv("TEST_DB_HOST", "postgres")
		t.Setenv("TEST_DB_PORT", "5432")

		cfg := DefaultTestDBConfig()
		if cfg.Host != "postgres" || cfg.Port != "5432" {
			t.Errorf("expected postgres:5432, got %s:%s", cfg.Host, cfg.Port)
		}
	})
}

func TestTestDBConfig_DSN(t *testing.T) {
	t.Setenv("DB_SSL_MODE", "")
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "jobs"}

	u, err := url.Parse(cfg.DSN("t_abcd"))
	if err != nil {
		t.Fatalf("DSN did not parse: %v", err)
	}
	if u.Host != "db:5432" || u.Path != "/jobs" {
		t.Errorf("unexpected host/path: %s %s", u.Host, u.Path)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" {
		t.Errorf("password not preserved: %q", pw)
	}
	if got := u.Query().Get("search_path"); got != "t_abcd,public" {
		t.Errorf("search_path = %q", got)
	}
	if got := u.Query().Get("sslmode"); got != "disable" {
		t.Errorf("sslmode = %q", got)
	}
	if bare, _ := url.Parse(cfg.DSN("")); bare.Query().Has("search_path") {
		t.Errorf("search_path should be omitted without schema")
	}
}
