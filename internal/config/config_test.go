package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
site_url: https://shop.example.com
stripe:
  currency: eur
  checkout_mode: hosted
  shipping_countries: [DE, FR]
printful:
  breaker_failures: 3
catalog:
  cache_ttl: 90s
timeouts:
  partner: 7s
kafka:
  brokers: ["kafka:9092"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.SiteURL != "https://shop.example.com" {
		t.Fatalf("unexpected site_url: %s", cfg.SiteURL)
	}
	if cfg.Stripe.Currency != "eur" || cfg.Stripe.CheckoutMode != "hosted" {
		t.Fatalf("unexpected stripe config: %+v", cfg.Stripe)
	}
	if len(cfg.Stripe.ShippingCountries) != 2 || cfg.Stripe.ShippingCountries[0] != "DE" {
		t.Fatalf("unexpected shipping countries: %v", cfg.Stripe.ShippingCountries)
	}
	if cfg.Printful.BreakerFailures != 3 {
		t.Fatalf("unexpected breaker failures: %d", cfg.Printful.BreakerFailures)
	}
	if cfg.Catalog.CacheTTL != 90*time.Second {
		t.Fatalf("unexpected catalog cache ttl: %s", cfg.Catalog.CacheTTL)
	}
	if cfg.Timeouts.Partner != 7*time.Second {
		t.Fatalf("unexpected partner timeout: %s", cfg.Timeouts.Partner)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "kafka:9092" {
		t.Fatalf("unexpected kafka brokers: %v", cfg.Kafka.Brokers)
	}

	if cfg.Printful.BaseURL != "https://api.printful.com" {
		t.Fatalf("printful base url default should stay, got %s", cfg.Printful.BaseURL)
	}
	if cfg.Timeouts.Email != 10*time.Second {
		t.Fatalf("email timeout default should stay 10s")
	}
	if cfg.Webhook.MaxBodyBytes != 1<<20 {
		t.Fatalf("webhook max body default should stay 1MiB")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Stripe.Currency != "usd" || cfg.Stripe.CheckoutMode != "embedded" {
		t.Fatalf("unexpected stripe defaults: %+v", cfg.Stripe)
	}
	if cfg.Fulfillment.DedupTTL != 72*time.Hour {
		t.Fatalf("unexpected dedup ttl default: %s", cfg.Fulfillment.DedupTTL)
	}
	if cfg.S3.DownloadTTL != 24*time.Hour {
		t.Fatalf("unexpected download ttl default: %s", cfg.S3.DownloadTTL)
	}
	if cfg.Kafka.AlertTopic != "fulfillment.alerts" || len(cfg.Kafka.Brokers) != 0 {
		t.Fatalf("unexpected kafka defaults: %+v", cfg.Kafka)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_SHIPPING_COUNTRIES", "US, ,CA")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("TIMEOUT_LEDGER", "2s")
	t.Setenv("TIMEOUT_BRANCH", "45s")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("POSTGRES_AUTO_MIGRATE", "1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Stripe.SecretKey != "sk_test_123" {
		t.Fatalf("unexpected secret key override")
	}
	if strings.Join(cfg.Stripe.ShippingCountries, ",") != "US,CA" {
		t.Fatalf("unexpected countries: %v", cfg.Stripe.ShippingCountries)
	}
	if cfg.Timeouts.Branch != 45*time.Second {
		t.Fatalf("unexpected branch timeout: %s", cfg.Timeouts.Branch)
	}
	if !cfg.Postgres.AutoMigrate {
		t.Fatalf("expected auto migrate override")
	}
	if cfg.RateLimit.PerMinute != 0 || cfg.RateLimit.Per10Sec != 10 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Timeouts.Ledger != 2*time.Second || !cfg.S3.UseSSL {
		t.Fatalf("unexpected overrides: %+v %+v", cfg.Kafka, cfg.Timeouts)
	}
}

func TestLoadRejectsInvalidEnvValues(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TIMEOUT_PARTNER", "soon")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsMissingSecretsInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when secrets are empty in production")
	}
	if !strings.Contains(err.Error(), "stripe.webhook_secret is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := Default()
	cfg.Stripe.SecretKey = "sk_live_x"
	cfg.Stripe.WebhookSecret = "whsec_x"
	cfg.Printful.APIKey = "pf_x"
	cfg.Email.ResendAPIKey = "re_x"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	cfg.Stripe.CheckoutMode = "redirect"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown checkout mode")
	}
}

func TestShutdownTimeoutCoversBranchTimeout(t *testing.T) {
	cfg := Default()
	if got := cfg.ShutdownTimeout(); got != 35*time.Second {
		t.Fatalf("unexpected shutdown timeout: %s", got)
	}

	cfg.Timeouts.Branch = time.Second
	if got := cfg.ShutdownTimeout(); got != 10*time.Second {
		t.Fatalf("shutdown timeout must not drop below 10s, got %s", got)
	}
}

func TestCheckoutURLsFallBackToSiteURL(t *testing.T) {
	cfg := Default()
	cfg.SiteURL = "https://shop.example.com/"

	success, cancel, ret := cfg.CheckoutURLs()
	if success != "https://shop.example.com/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("unexpected success url: %s", success)
	}
	if cancel != "https://shop.example.com/cart" || ret != success {
		t.Fatalf("unexpected cancel/return urls: %s %s", cancel, ret)
	}

	cfg.Stripe.CancelURL = "https://shop.example.com/bag"
	if _, cancel, _ = cfg.CheckoutURLs(); cancel != "https://shop.example.com/bag" {
		t.Fatalf("configured cancel url must win, got %s", cancel)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"SITE_URL",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"LOG_ENCODING",
		"POSTGRES_DSN",
		"POSTGRES_AUTO_MIGRATE",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_REGION",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"S3_DOWNLOAD_TTL",
		"STRIPE_SECRET_KEY",
		"STRIPE_WEBHOOK_SECRET",
		"STRIPE_API_URL",
		"STRIPE_CURRENCY",
		"STRIPE_CHECKOUT_MODE",
		"STRIPE_SHIPPING_COUNTRIES",
		"STRIPE_SUCCESS_URL",
		"STRIPE_CANCEL_URL",
		"STRIPE_RETURN_URL",
		"PRINTFUL_BASE_URL",
		"PRINTFUL_API_KEY",
		"PRINTFUL_STORE_ID",
		"RESEND_API_KEY",
		"EMAIL_FROM",
		"KAFKA_BROKERS",
		"KAFKA_ALERT_TOPIC",
		"CATALOG_CACHE_TTL",
		"CATALOG_WARM_INTERVAL",
		"FULFILLMENT_DEDUP_TTL",
		"RATE_LIMIT_PER_MINUTE",
		"RATE_LIMIT_PER_10_SEC",
		"TIMEOUT_PROCESSOR",
		"TIMEOUT_PARTNER",
		"TIMEOUT_EMAIL",
		"TIMEOUT_LEDGER",
		"TIMEOUT_BRANCH",
	} {
		t.Setenv(key, "")
	}
}
