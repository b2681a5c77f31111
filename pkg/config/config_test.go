package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("product-composite", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppName != "product-composite" || cfg.Kafka.GroupID != "product-composite" {
		t.Fatalf("unexpected app name defaults: %+v", cfg)
	}
	if cfg.Publisher.PoolSize != 10 || cfg.Publisher.QueueSize != 100 {
		t.Fatalf("unexpected publisher defaults: %+v", cfg.Publisher)
	}
	if cfg.Downstream.Timeout != 5*time.Second || cfg.Downstream.Product.Host != "product" {
		t.Fatalf("unexpected downstream defaults: %+v", cfg.Downstream)
	}
	if cfg.ENV != "development" {
		t.Fatalf("unexpected env %q", cfg.ENV)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := []byte(`
server:
  port: 7001
downstream:
  timeout: 2s
  review:
    host: review-svc
    port: 7003
kafka:
  maxRetries: 5
`)
	if err := os.WriteFile(filepath.Join(dir, "review.yaml"), content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PRODUCT_SERVICE_HOST", "product-svc")
	t.Setenv("KAFKA_BROKERS", "k1:9092")

	cfg, err := Load("review", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7001 || cfg.Downstream.Timeout != 2*time.Second {
		t.Fatalf("file values not applied: %+v", cfg.Server)
	}
	if cfg.Downstream.Review.Host != "review-svc" || cfg.Downstream.Review.Port != 7003 {
		t.Fatalf("unexpected review endpoint: %+v", cfg.Downstream.Review)
	}
	if cfg.Downstream.Product.Host != "product-svc" {
		t.Fatalf("env override not applied: %+v", cfg.Downstream.Product)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "k1:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.MaxRetries != 5 {
		t.Fatalf("unexpected retries: %d", cfg.Kafka.MaxRetries)
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_ENABLED", "true")

	if _, err := Load("product-composite", ""); err == nil {
		t.Fatalf("expected error when auth is enabled without secret")
	}
}
