package core

import "time"

// Message is a chat message as delivered by the chat-platform collaborator.
// Only Content and CreatedAt drive scoring and classification; the remaining
// fields are carried for alert context.
type Message struct {
	ID          string   `json:"id"`          // Platform message id (generated on ingest when absent)
	AuthorID    string   `json:"authorId"`    // Author snowflake / user id
	AuthorTag   string   `json:"authorTag"`   // Human readable author handle
	ChannelID   string   `json:"channelId"`   // Source channel
	GuildID     string   `json:"guildId"`     // Source guild / server
	Content     string   `json:"content"`     // Raw message text
	URL         string   `json:"url"`         // Permalink to the message
	Attachments []string `json:"attachments"` // Attachment URLs
	CreatedAt   int64    `json:"createdAt"`   // Creation time, epoch milliseconds
}

// CreatedTime returns CreatedAt as a time.Time (zero when unset).
func (m Message) CreatedTime() time.Time {
	if m.CreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.CreatedAt)
}

// Author returns the best available author label.
func (m Message) Author() string {
	if m.AuthorTag != "" {
		return m.AuthorTag
	}
	return m.AuthorID
}

// Verdict is the relevance decision for a single message.
type Verdict struct {
	Admitted bool `json:"admitted"`
	Score    int  `json:"score"`
}

// AlertEvent is raised when an incident type crosses its threshold outside
// of the cooldown. It is dispatched once and not retained.
type AlertEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`           // Incident type key (login, lag, crash)
	Label         string    `json:"label"`          // Human readable incident label
	Count         int       `json:"count"`          // Occurrences inside the window
	WindowMinutes int       `json:"window_minutes"` // Window length used for Count
	GuildID       string    `json:"guild_id"`
	ChannelID     string    `json:"channel_id"`
	Author        string    `json:"author"`
	URL           string    `json:"url"`
	Timestamp     time.Time `json:"timestamp"`
}
