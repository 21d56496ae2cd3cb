package publishers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jewel-tree/profile-post-watcher/pkg/httpclient"
)

// discordPublisher posts the notification text to a Discord channel, either via
// an incoming webhook or through the bot REST API.
type discordPublisher struct {
	id       string
	endpoint string
	botToken string
	client   *resty.Client
	log      Logger
}

type discordMessage struct {
	Content string `json:"content"`
}

func newDiscordPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Discord == nil {
		return nil, fmt.Errorf("publisher %q missing discord configuration", cfg.ID)
	}
	d := cfg.Discord

	p := &discordPublisher{
		id:     cfg.ID,
		client: httpclient.NewRestyHTTPClient(time.Duration(d.TimeoutSeconds) * time.Second),
		log:    ensureLogger(log),
	}
	switch {
	case d.WebhookURL != "":
		p.endpoint = d.WebhookURL
	case d.BotToken != "" && d.ChannelID != "":
		p.endpoint = fmt.Sprintf("%s/channels/%s/messages", d.APIBase, url.PathEscape(d.ChannelID))
		p.botToken = d.BotToken
	default:
		return nil, fmt.Errorf("publisher %q needs a discord webhook or bot token with channel id", cfg.ID)
	}
	return p, nil
}

func (d *discordPublisher) ID() string   { return d.id }
func (d *discordPublisher) Type() string { return TypeDiscord }

func (d *discordPublisher) Publish(ctx context.Context, evt Event) error {
	content := evt.Message
	if content == "" {
		content = FormatMessage("", evt.PostURL)
	}

	req := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(discordMessage{Content: content})
	if d.botToken != "" {
		req.SetHeader("Authorization", "Bot "+d.botToken)
	}

	resp, err := req.Post(d.endpoint)
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("discord response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	d.log.DebugObj("discord publisher delivered event", "publisher_discord_delivery", map[string]any{
		"publisher_id": d.id,
		"post_url":     evt.PostURL,
	})
	return nil
}
