package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8000 || c.Server.Host != "0.0.0.0" {
		t.Fatalf("unexpected listener %s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Market.CacheDuration != 5*time.Minute {
		t.Fatalf("unexpected cache duration %v", c.Market.CacheDuration)
	}
	if c.Model.Bucket != "sp500-models" || c.AWS.Region != "us-east-1" {
		t.Fatalf("unexpected model defaults %+v / %s", c.Model, c.AWS.Region)
	}
	if c.Market.Symbol != "^GSPC" {
		t.Fatalf("unexpected symbol %s", c.Market.Symbol)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
environment: production
server:
  port: 9090
market:
  cache_duration: 2m
cache:
  backend: layered
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "production" || c.Server.Port != 9090 {
		t.Fatalf("yaml not applied: %+v", c.Server)
	}
	if c.Market.CacheDuration != 2*time.Minute {
		t.Fatalf("unexpected cache duration %v", c.Market.CacheDuration)
	}
	if c.Cache.Backend != "layered" {
		t.Fatalf("unexpected backend %s", c.Cache.Backend)
	}
	if c.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("default lost for read timeout: %v", c.Server.ReadTimeout)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	p := writeConfig(t, `
cache:
  backend: memcached
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8123")
	t.Setenv("S3_BUCKET_NAME", "other-bucket")
	t.Setenv("MARKET_DATA_CACHE_DURATION", "120")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("REDIS_ADDR", "redis:6380")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8123 {
		t.Fatalf("PORT not applied: %d", c.Server.Port)
	}
	if c.Model.Bucket != "other-bucket" {
		t.Fatalf("bucket not applied: %s", c.Model.Bucket)
	}
	if c.Market.CacheDuration != 2*time.Minute {
		t.Fatalf("cache duration not applied: %v", c.Market.CacheDuration)
	}
	if len(c.Kafka.Brokers) != 2 {
		t.Fatalf("brokers not applied: %v", c.Kafka.Brokers)
	}
	if c.Cache.Redis.Host != "redis" || c.Cache.Redis.Port != 6380 {
		t.Fatalf("redis addr not applied: %s:%d", c.Cache.Redis.Host, c.Cache.Redis.Port)
	}
}

func TestPolygonRequiresKey(t *testing.T) {
	p := writeConfig(t, `
market:
  provider: polygon
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for missing polygon key")
	}
}
