package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscordPublisherBotMessage(t *testing.T) {
	var gotAuth, gotPath string
	var body discordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("TEST_DISCORD_TOKEN", "secret")
	cfg := sanitizePublisherConfig(PublisherConfig{
		ID:   "discord",
		Type: TypeDiscord,
		Discord: &DiscordPublisherConfig{
			BotToken:  "${TEST_DISCORD_TOKEN}",
			ChannelID: "12345",
			APIBase:   srv.URL + "/api/v10/",
		},
	})
	if err := validatePublisherConfig(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}

	pub, err := newDiscordPublisher(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("newDiscordPublisher: %v", err)
	}
	evt := NewEvent("jewel", "direct", "https://x/p/A/", "")
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if gotAuth != "Bot secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotPath != "/api/v10/channels/12345/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if body.Content != "New post detected! Check it out: https://x/p/A/" {
		t.Fatalf("content = %q", body.Content)
	}
}

func TestDiscordPublisherWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("webhook must not send an Authorization header")
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	pub, err := newDiscordPublisher(context.Background(), sanitizePublisherConfig(PublisherConfig{
		ID:      "hook",
		Type:    TypeDiscord,
		Discord: &DiscordPublisherConfig{WebhookURL: srv.URL},
	}), nil)
	if err != nil {
		t.Fatalf("newDiscordPublisher: %v", err)
	}
	if err := pub.Publish(context.Background(), Event{PostURL: "https://x/p/A/"}); err == nil {
		t.Fatalf("expected error on 429")
	}
}

func TestDiscordPublisherRequiresTarget(t *testing.T) {
	_, err := newDiscordPublisher(context.Background(), PublisherConfig{
		ID:      "d",
		Type:    TypeDiscord,
		Discord: &DiscordPublisherConfig{BotToken: "t"},
	}, nil)
	if err == nil {
		t.Fatalf("expected error without channel id")
	}
}
