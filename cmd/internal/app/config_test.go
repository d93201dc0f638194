package app

import (
	"strings"
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TASKMAN_TEST_STR", "  hello  ")
	t.Setenv("TASKMAN_TEST_BOOL", "true")
	t.Setenv("TASKMAN_TEST_INT", "42")
	t.Setenv("TASKMAN_TEST_DUR", "250ms")

	if got := EnvString("TASKMAN_TEST_STR", "def"); got != "hello" {
		t.Fatalf("EnvString=%q", got)
	}
	if got := EnvString("TASKMAN_TEST_MISSING", "def"); got != "def" {
		t.Fatalf("EnvString default=%q", got)
	}
	if !EnvBool("TASKMAN_TEST_BOOL", false) {
		t.Fatalf("EnvBool should be true")
	}
	if got := EnvInt("TASKMAN_TEST_INT", 1); got != 42 {
		t.Fatalf("EnvInt=%d", got)
	}
	if got := EnvDuration("TASKMAN_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("EnvDuration=%v", got)
	}
}

func TestEnvHelpers_RejectGarbage(t *testing.T) {
	t.Setenv("TASKMAN_TEST_INT", "-5")
	t.Setenv("TASKMAN_TEST_DUR", "not-a-duration")

	if got := EnvInt("TASKMAN_TEST_INT", 7); got != 7 {
		t.Fatalf("EnvInt fell through: %d", got)
	}
	if got := EnvDuration("TASKMAN_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("EnvDuration fell through: %v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{
		DatabaseURL:    "postgres://localhost:5432/taskman",
		TokenSecret:    []byte(strings.Repeat("s", 32)),
		SendGridAPIKey: "SG.fixture-key",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.DatabaseURL = ""
	if err := bad.Validate(); err == nil {
		t.Fatalf("missing database url accepted")
	}

	bad = cfg
	bad.TokenSecret = []byte("short")
	if err := bad.Validate(); err == nil {
		t.Fatalf("short token secret accepted")
	}

	bad = cfg
	bad.SendGridAPIKey = ""
	if err := bad.Validate(); err == nil {
		t.Fatalf("missing mail key accepted")
	}
	bad.MailDisabled = true
	if err := bad.Validate(); err != nil {
		t.Fatalf("explicitly disabled mail rejected: %v", err)
	}
}
