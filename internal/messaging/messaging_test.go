package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ffnexus/internal/core"
)

func testEvent() core.AlertEvent {
	return core.AlertEvent{
		Type:          "login",
		Label:         "Problemas de login/conexão",
		Count:         3,
		WindowMinutes: 15,
		GuildID:       "g1",
		ChannelID:     "c1",
		Author:        "player#0001",
		URL:           "https://discord.com/channels/g1/c1/m1",
		Timestamp:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildNotificationPT(t *testing.T) {
	n := BuildNotification(testEvent(), LanguagePT, DefaultFooter)

	if n.Title != "⚠️ Alerta: Problemas de login/conexão" {
		t.Errorf("unexpected title %q", n.Title)
	}
	want := strings.Join([]string{
		"Ocorrências nos últimos 15 min: 3",
		"Servidor: g1",
		"Canal: c1",
		"Autor: player#0001",
		"Link: https://discord.com/channels/g1/c1/m1",
	}, "\n")
	if n.Description != want {
		t.Errorf("description =\n%s\nwant\n%s", n.Description, want)
	}
	if !n.Timestamp.Equal(testEvent().Timestamp) {
		t.Errorf("timestamp = %v", n.Timestamp)
	}
}

func TestBuildNotificationMissingContext(t *testing.T) {
	ev := core.AlertEvent{Label: "Lag/Ping/Quedas", Count: 1, WindowMinutes: 15}
	n := BuildNotification(ev, LanguageEN, "")

	if n.Title != "⚠️ Alert: Lag/Ping/Quedas" {
		t.Errorf("unexpected title %q", n.Title)
	}
	if strings.Contains(n.Description, "Link:") {
		t.Error("link line should be omitted without a URL")
	}
	if !strings.Contains(n.Description, "Server: -") || !strings.Contains(n.Description, "Author: -") {
		t.Errorf("missing placeholders in %q", n.Description)
	}
	if n.Timestamp.IsZero() {
		t.Error("timestamp should default to now")
	}
}

func TestNotificationDiscordMessage(t *testing.T) {
	msg := BuildNotification(testEvent(), LanguagePT, DefaultFooter).DiscordMessage()
	if len(msg.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(msg.Embeds))
	}
	e := msg.Embeds[0]
	if e.Footer == nil || e.Footer.Text != DefaultFooter {
		t.Errorf("unexpected footer %+v", e.Footer)
	}
	if e.Timestamp != "2025-06-01T12:00:00Z" {
		t.Errorf("unexpected timestamp %q", e.Timestamp)
	}

	wantFields := []DiscordEmbedField{
		{Name: "Tipo", Value: "login", Inline: true},
		{Name: "Ocorrências", Value: "3", Inline: true},
		{Name: "Janela", Value: "15 min", Inline: true},
	}
	if len(e.Fields) != len(wantFields) {
		t.Fatalf("expected %d fields, got %+v", len(wantFields), e.Fields)
	}
	for i, f := range wantFields {
		if e.Fields[i] != f {
			t.Errorf("field %d = %+v, want %+v", i, e.Fields[i], f)
		}
	}
}

func TestNotificationSlackMessage(t *testing.T) {
	msg := BuildNotification(testEvent(), LanguageEN, DefaultFooter).SlackMessage()
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Title != "⚠️ Alert: Problemas de login/conexão" || att.Footer != DefaultFooter {
		t.Errorf("unexpected attachment %+v", att)
	}
	if att.Ts != testEvent().Timestamp.Unix() {
		t.Errorf("ts = %d", att.Ts)
	}
	want := []SlackField{
		{Title: "Type", Value: "login", Short: true},
		{Title: "Occurrences", Value: "3", Short: true},
		{Title: "Window", Value: "15 min", Short: true},
	}
	if len(att.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %+v", len(want), att.Fields)
	}
	for i, f := range want {
		if att.Fields[i] != f {
			t.Errorf("field %d = %+v, want %+v", i, att.Fields[i], f)
		}
	}
}

func TestSendDiscordChannelMessage(t *testing.T) {
	var gotPath, gotAuth string
	var got DiscordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	c := NewMessagingClient("secret", "", "", time.Second)
	c.DiscordAPIBase = srv.URL + "/api/v10"

	n := BuildNotification(testEvent(), LanguagePT, DefaultFooter)
	if err := c.Send(context.Background(), PlatformDiscord, "123", n); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotPath != "/api/v10/channels/123/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bot secret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if len(got.Embeds) != 1 || got.Embeds[0].Title != n.Title {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestSendDiscordChannelMessageErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Missing Access"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewMessagingClient("secret", "", "", time.Second)
	c.DiscordAPIBase = srv.URL

	if err := c.SendDiscordChannelMessage(context.Background(), "123", &DiscordMessage{Content: "x"}); err == nil {
		t.Error("expected error on 403")
	}
	if err := c.SendDiscordChannelMessage(context.Background(), "", &DiscordMessage{}); err == nil {
		t.Error("expected error without channel id")
	}
	if err := NewMessagingClient("", "", "", 0).SendDiscordChannelMessage(context.Background(), "1", &DiscordMessage{}); err == nil {
		t.Error("expected error without token")
	}
}

func TestSendWebhooks(t *testing.T) {
	discord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer discord.Close()

	var slackBody SlackMessage
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&slackBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer slack.Close()

	c := NewMessagingClient("", slack.URL, discord.URL, time.Second)
	n := BuildNotification(testEvent(), LanguageEN, DefaultFooter)

	if err := c.Send(context.Background(), PlatformDiscordWebhook, "", n); err != nil {
		t.Errorf("discord webhook: %v", err)
	}
	if err := c.Send(context.Background(), PlatformSlack, "", n); err != nil {
		t.Errorf("slack webhook: %v", err)
	}
	if len(slackBody.Attachments) != 1 || slackBody.Attachments[0].Text != n.Description {
		t.Errorf("unexpected slack payload %+v", slackBody)
	}
	if err := c.Send(context.Background(), MessagePlatform("teams"), "", n); err == nil {
		t.Error("expected unsupported platform error")
	}
}

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		platform MessagePlatform
		url      string
		wantErr  bool
	}{
		{PlatformSlack, "https://hooks.slack.com/services/T/B/X", false},
		{PlatformSlack, "https://example.com", true},
		{PlatformDiscordWebhook, "https://discord.com/api/webhooks/1/abc", false},
		{PlatformDiscordWebhook, "", true},
		{PlatformDiscord, "https://discord.com/api/webhooks/1/abc", true},
	}
	for _, tt := range tests {
		if err := ValidateWebhookURL(tt.platform, tt.url); (err != nil) != tt.wantErr {
			t.Errorf("ValidateWebhookURL(%s, %q) error = %v, wantErr %v", tt.platform, tt.url, err, tt.wantErr)
		}
	}
}
