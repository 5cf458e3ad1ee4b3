package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080, PublicBaseURL: "http://localhost:8080"},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "ivr"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		S3:    S3Config{Bucket: "ivr-audio"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.App.PublicBaseURL = "https://ivr.example.com"
	c.Auth.JWTIssuer = "ivr"
	c.Auth.JWTAudience = "operators"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("access ttl default = %s", c.Auth.AccessTokenTTL)
	}
	if c.IVR.LookupAttempts != 5 || c.IVR.LookupDelay != 200*time.Millisecond {
		t.Fatalf("lookup defaults = %d/%s", c.IVR.LookupAttempts, c.IVR.LookupDelay)
	}
	if c.IVR.AudioURLTTL != time.Hour || c.IVR.RecordingURLTTL != 100*24*time.Hour {
		t.Fatalf("url ttl defaults = %s/%s", c.IVR.AudioURLTTL, c.IVR.RecordingURLTTL)
	}
	if c.S3.Region != "us-east-1" {
		t.Fatalf("region default = %q", c.S3.Region)
	}
}

func TestValidate_SkipSignatureRejectedInProduction(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.App.PublicBaseURL = "https://ivr.example.com"
	c.DB.SSLMode = "require"
	c.Auth.JWTIssuer = "ivr"
	c.Auth.JWTAudience = "operators"
	c.Twilio.SkipSignature = true

	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "TWILIO_SKIP_SIGNATURE") {
		t.Fatalf("expected skip-signature error, got %v", err)
	}
}

func TestValidate_PublicBaseURLMustBeAbsolute(t *testing.T) {
	c := validLocal()
	c.App.PublicBaseURL = "/ivr"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for relative PUBLIC_BASE_URL")
	}
}

func TestValidate_TwilioCredentialsPaired(t *testing.T) {
	c := validLocal()
	c.Twilio.AccountSID = "AC123"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for account sid without token")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("PUBLIC_BASE_URL", "https://ivr.example.com/")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "ivr")
	t.Setenv("DB_NAME", "ivr")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("S3_BUCKET", "audio")
	t.Setenv("S3_PATH_STYLE", "true")
	t.Setenv("TWILIO_SKIP_SIGNATURE", "1")
	t.Setenv("IVR_LOOKUP_ATTEMPTS", "3")
	t.Setenv("IVR_LOOKUP_DELAY", "50ms")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if c.App.PublicBaseURL != "https://ivr.example.com" {
		t.Fatalf("trailing slash not trimmed: %q", c.App.PublicBaseURL)
	}
	if !c.S3.PathStyle || !c.Twilio.SkipSignature {
		t.Fatalf("bool flags not parsed: %+v %+v", c.S3, c.Twilio)
	}
	if c.IVR.LookupAttempts != 3 || c.IVR.LookupDelay != 50*time.Millisecond {
		t.Fatalf("ivr = %+v", c.IVR)
	}
	if c.RedisAddr() != "cache:6379" || c.HTTPAddr() != ":9000" {
		t.Fatalf("addrs = %s %s", c.RedisAddr(), c.HTTPAddr())
	}
}

func TestFromEnv_BadDuration(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("IVR_LOOKUP_DELAY", "soon")

	_, err := FromEnv()
	if err == nil || !strings.Contains(err.Error(), "IVR_LOOKUP_DELAY") {
		t.Fatalf("expected duration parse error, got %v", err)
	}
}
