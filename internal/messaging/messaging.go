package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MessagePlatform represents the alert transports
type MessagePlatform string

const (
	PlatformDiscord        MessagePlatform = "discord"         // Bot token, posts to a channel id
	PlatformDiscordWebhook MessagePlatform = "discord_webhook" // Incoming webhook URL
	PlatformSlack          MessagePlatform = "slack"           // Incoming webhook URL
)

// DefaultDiscordAPIBase is the Discord REST endpoint used by the bot transport.
const DefaultDiscordAPIBase = "https://discord.com/api/v10"

// SlackMessage represents a Slack message structure
type SlackMessage struct {
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents legacy Slack attachments
type SlackAttachment struct {
	Color  string       `json:"color,omitempty"`
	Title  string       `json:"title,omitempty"`
	Text   string       `json:"text,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
}

// SlackField represents fields in attachments
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// DiscordMessage represents a Discord message structure
type DiscordMessage struct {
	Content   string         `json:"content,omitempty"`
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents a Discord embed
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// DiscordEmbedField represents fields in Discord embeds
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordEmbedFooter represents footer in Discord embeds
type DiscordEmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// MessagingClient handles sending messages to different platforms
type MessagingClient struct {
	DiscordBotToken   string
	DiscordAPIBase    string
	SlackWebhookURL   string
	DiscordWebhookURL string
	HTTPClient        *http.Client
}

// NewMessagingClient creates a new messaging client
func NewMessagingClient(botToken, slackURL, discordURL string, timeout time.Duration) *MessagingClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MessagingClient{
		DiscordBotToken:   botToken,
		DiscordAPIBase:    DefaultDiscordAPIBase,
		SlackWebhookURL:   slackURL,
		DiscordWebhookURL: discordURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// postJSON posts payload and returns the response status and body.
func (c *MessagingClient) postJSON(ctx context.Context, url string, payload any, header http.Header) (int, []byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, body, nil
}

// SendSlackMessage sends a message to Slack webhook
func (c *MessagingClient) SendSlackMessage(ctx context.Context, message *SlackMessage) error {
	if c.SlackWebhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	status, body, err := c.postJSON(ctx, c.SlackWebhookURL, message, nil)
	if err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d: %s", status, string(body))
	}
	return nil
}

// SendDiscordMessage sends a message to Discord webhook
func (c *MessagingClient) SendDiscordMessage(ctx context.Context, message *DiscordMessage) error {
	if c.DiscordWebhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured")
	}

	status, body, err := c.postJSON(ctx, c.DiscordWebhookURL, message, nil)
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return fmt.Errorf("discord webhook returned status %d: %s", status, string(body))
	}
	return nil
}

// SendDiscordChannelMessage posts a message to a channel as the bot.
func (c *MessagingClient) SendDiscordChannelMessage(ctx context.Context, channelID string, message *DiscordMessage) error {
	if c.DiscordBotToken == "" {
		return fmt.Errorf("discord bot token not configured")
	}
	if channelID == "" {
		return fmt.Errorf("discord channel id not configured")
	}

	base := strings.TrimRight(c.DiscordAPIBase, "/")
	if base == "" {
		base = DefaultDiscordAPIBase
	}
	url := fmt.Sprintf("%s/channels/%s/messages", base, channelID)
	header := http.Header{"Authorization": []string{"Bot " + c.DiscordBotToken}}

	// The bot endpoint rejects webhook-only fields.
	payload := *message
	payload.Username = ""
	payload.AvatarURL = ""

	status, body, err := c.postJSON(ctx, url, &payload, header)
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("discord API returned status %d: %s", status, string(body))
	}
	return nil
}

// Send delivers a notification over the given platform. For the Discord bot
// transport destination is the channel id; webhook transports ignore it.
func (c *MessagingClient) Send(ctx context.Context, platform MessagePlatform, destination string, n Notification) error {
	switch platform {
	case PlatformDiscord:
		return c.SendDiscordChannelMessage(ctx, destination, n.DiscordMessage())
	case PlatformDiscordWebhook:
		return c.SendDiscordMessage(ctx, n.DiscordMessage())
	case PlatformSlack:
		return c.SendSlackMessage(ctx, n.SlackMessage())
	default:
		return fmt.Errorf("unsupported platform: %s", platform)
	}
}

// ValidateWebhookURL validates if a webhook URL is properly formatted
func ValidateWebhookURL(platform MessagePlatform, url string) error {
	if url == "" {
		return fmt.Errorf("%s webhook URL cannot be empty", platform)
	}

	switch platform {
	case PlatformSlack:
		if !strings.Contains(url, "hooks.slack.com") {
			return fmt.Errorf("invalid Slack webhook URL format")
		}
	case PlatformDiscordWebhook:
		if !strings.Contains(url, "discord.com/api/webhooks") {
			return fmt.Errorf("invalid Discord webhook URL format")
		}
	default:
		return fmt.Errorf("unknown platform: %s", platform)
	}

	return nil
}
