package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadRegistryEnabledFilter(t *testing.T) {
	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: log
    type: LOG
  - id: discord
    type: discord
    enabled: true
    discord:
      webhook_url: ${TEST_WEBHOOK_URL}
`)
	t.Setenv("TEST_WEBHOOK_URL", "https://discord.test/hook")

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "log" || enabled[1].ID != "discord" {
		t.Fatalf("expected log and discord enabled, got %#v", enabled)
	}
	if enabled[0].Type != TypeLog {
		t.Fatalf("type not normalized: %q", enabled[0].Type)
	}
	d, ok := reg.ByID("discord")
	if !ok || d.Discord.WebhookURL != "https://discord.test/hook" || d.Discord.APIBase != discordDefaultAPIBase {
		t.Fatalf("discord config not sanitized: %#v", d.Discord)
	}
	h, _ := reg.ByID("http1")
	if h.HTTP.Method != "POST" || h.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %#v", h.HTTP)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeFile(t, "publishers.json", `{"publishers":[{"id":"q","type":"sqs","sqs":{"uri":"https://sqs/q","region":"us-east-1","access_key_id":"AK"}}]}`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	cfg, ok := reg.ByID("q")
	if !ok || cfg.SQS.QueueURL != "https://sqs/q" || cfg.SQS.AccessKeyID != "AK" {
		t.Fatalf("unexpected sqs config %#v", cfg.SQS)
	}
}

func TestLoadRegistryRejectsDuplicatesAndEmpty(t *testing.T) {
	dup := writeFile(t, "dup.yaml", `
publishers:
  - id: a
    type: log
  - id: a
    type: log
`)
	if _, err := LoadRegistry(dup); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	empty := writeFile(t, "empty.yaml", "publishers: []\n")
	if _, err := LoadRegistry(empty); err == nil {
		t.Fatalf("expected error for empty publishers list")
	}

	if _, err := LoadRegistry(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  PublisherConfig
	}{
		{"missing id", PublisherConfig{Type: TypeLog}},
		{"missing type", PublisherConfig{ID: "x"}},
		{"missing http", PublisherConfig{ID: "h", Type: TypeHTTP}},
		{"sqs without region", PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}}},
		{"sns without topic", PublisherConfig{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "us-east-1"}}},
		{"pubsub without topic", PublisherConfig{ID: "g", Type: TypeGCPPubSub, GCP: &GCPQueueConfig{ProjectID: "p"}}},
		{"discord bot without channel", PublisherConfig{ID: "d", Type: TypeDiscord, Discord: &DiscordPublisherConfig{BotToken: "t"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validatePublisherConfig(tt.cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
