package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/ykvlv/assetwatch/internal/domain"
)

// Channel names a notification transport.
type Channel string

const (
	ChannelTelegram Channel = "Telegram"
	ChannelEmail    Channel = "Email"
	ChannelWebhook  Channel = "Webhook"
)

// channelOrder is the fixed attempt order within one dispatch.
var channelOrder = []Channel{ChannelTelegram, ChannelEmail, ChannelWebhook}

// ParseChannel accepts channel names case-insensitively.
func ParseChannel(s string) (Channel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "telegram":
		return ChannelTelegram, true
	case "email":
		return ChannelEmail, true
	case "webhook":
		return ChannelWebhook, true
	}
	return "", false
}

var (
	ErrNotConfigured = errors.New("channel credentials not configured")
	ErrNoSender      = errors.New("no sender registered for channel")
)

// Sender delivers one rendered message to one target (chat id, address, URL).
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, target string, msg Message) error
}

// selected reports whether flags select ch.
func selected(flags domain.ChannelFlags, ch Channel) bool {
	switch ch {
	case ChannelTelegram:
		return flags.Telegram
	case ChannelEmail:
		return flags.Email
	case ChannelWebhook:
		return flags.Webhook
	}
	return false
}

// targetFor returns the global delivery target of ch.
func targetFor(s domain.Settings, ch Channel) string {
	switch ch {
	case ChannelTelegram:
		return s.Telegram.ChatID
	case ChannelEmail:
		return s.Email.Address
	case ChannelWebhook:
		return s.Webhook.URL
	}
	return ""
}

// ChannelResult is the outcome of one channel attempt. Err is nil on success.
type ChannelResult struct {
	Channel Channel
	Err     error
}

// Summary aggregates the channel results of one dispatch.
type Summary struct {
	// Skipped is set when the resource's policy disabled notifications.
	Skipped bool
	Results []ChannelResult
}

// Sent lists the channels that delivered, in attempt order.
func (s Summary) Sent() []Channel {
	out := []Channel{}
	for _, r := range s.Results {
		if r.Err == nil {
			out = append(out, r.Channel)
		}
	}
	return out
}

// SentNames is Sent as plain strings.
func (s Summary) SentNames() []string {
	sent := s.Sent()
	out := make([]string, len(sent))
	for i, ch := range sent {
		out[i] = string(ch)
	}
	return out
}

// Failed lists the channels that were attempted and failed.
func (s Summary) Failed() []ChannelResult {
	var out []ChannelResult
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Success is true iff at least one channel delivered.
func (s Summary) Success() bool { return len(s.Sent()) > 0 }
