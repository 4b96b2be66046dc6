package messaging

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ffnexus/internal/core"
)

// Language selects the alert wording.
type Language string

const (
	LanguagePT Language = "pt"
	LanguageEN Language = "en"
)

// DefaultFooter is appended to every alert.
const DefaultFooter = "FFNexus • Garena BR"

const alertColor = 0xf59e0b // amber

type alertStrings struct {
	title       string
	occurrences string
	guild       string
	channel     string
	author      string
	link        string

	typeField   string
	countField  string
	windowField string
}

var alertText = map[Language]alertStrings{
	LanguagePT: {
		title:       "⚠️ Alerta: %s",
		occurrences: "Ocorrências nos últimos %d min: %d",
		guild:       "Servidor: %s",
		channel:     "Canal: %s",
		author:      "Autor: %s",
		link:        "Link: %s",
		typeField:   "Tipo",
		countField:  "Ocorrências",
		windowField: "Janela",
	},
	LanguageEN: {
		title:       "⚠️ Alert: %s",
		occurrences: "Occurrences in the last %d min: %d",
		guild:       "Server: %s",
		channel:     "Channel: %s",
		author:      "Author: %s",
		link:        "Link: %s",
		typeField:   "Type",
		countField:  "Occurrences",
		windowField: "Window",
	},
}

// Notification is a platform-neutral alert message.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Fields      []Field   `json:"fields,omitempty"`
	Footer      string    `json:"footer,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Field is a short labelled value shown beside the description.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// BuildNotification renders an alert event. Unknown languages fall back
// to Portuguese.
func BuildNotification(ev core.AlertEvent, lang Language, footer string) Notification {
	text, ok := alertText[lang]
	if !ok {
		text = alertText[LanguagePT]
	}

	lines := []string{
		fmt.Sprintf(text.occurrences, ev.WindowMinutes, ev.Count),
		fmt.Sprintf(text.guild, orDash(ev.GuildID)),
		fmt.Sprintf(text.channel, orDash(ev.ChannelID)),
		fmt.Sprintf(text.author, orDash(ev.Author)),
	}
	if ev.URL != "" {
		lines = append(lines, fmt.Sprintf(text.link, ev.URL))
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return Notification{
		Title:       fmt.Sprintf(text.title, ev.Label),
		Description: strings.Join(lines, "\n"),
		Fields: []Field{
			{Name: text.typeField, Value: orDash(ev.Type), Inline: true},
			{Name: text.countField, Value: strconv.Itoa(ev.Count), Inline: true},
			{Name: text.windowField, Value: fmt.Sprintf("%d min", ev.WindowMinutes), Inline: true},
		},
		Footer:    footer,
		Timestamp: ts,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// DiscordMessage renders the notification as a single embed.
func (n Notification) DiscordMessage() *DiscordMessage {
	embed := DiscordEmbed{
		Title:       n.Title,
		Description: n.Description,
		Color:       alertColor,
		Timestamp:   n.Timestamp.UTC().Format(time.RFC3339),
	}
	for _, f := range n.Fields {
		embed.Fields = append(embed.Fields, DiscordEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if n.Footer != "" {
		embed.Footer = &DiscordEmbedFooter{Text: n.Footer}
	}
	return &DiscordMessage{Embeds: []DiscordEmbed{embed}}
}

// SlackMessage renders the notification as a legacy attachment.
func (n Notification) SlackMessage() *SlackMessage {
	att := SlackAttachment{
		Color:  fmt.Sprintf("#%06x", alertColor),
		Title:  n.Title,
		Text:   n.Description,
		Footer: n.Footer,
		Ts:     n.Timestamp.Unix(),
	}
	for _, f := range n.Fields {
		att.Fields = append(att.Fields, SlackField{Title: f.Name, Value: f.Value, Short: f.Inline})
	}
	return &SlackMessage{
		Text:        n.Title,
		Attachments: []SlackAttachment{att},
	}
}
