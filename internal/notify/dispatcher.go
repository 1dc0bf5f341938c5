package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/assetwatch/internal/domain"
)

// Dispatcher fans a message out over the channels a policy selects.
type Dispatcher struct {
	logger  *zap.Logger
	senders map[Channel]Sender
}

// NewDispatcher registers senders by their channel. A later sender for the
// same channel replaces an earlier one.
func NewDispatcher(logger *zap.Logger, senders ...Sender) *Dispatcher {
	m := make(map[Channel]Sender, len(senders))
	for _, s := range senders {
		m[s.Channel()] = s
	}
	return &Dispatcher{logger: logger.Named("dispatcher"), senders: m}
}

// Notify sends the expiry reminder for r. A policy-disabled resource returns
// a Skipped summary without contacting any channel.
func (d *Dispatcher) Notify(ctx context.Context, r domain.Resource, daysRemaining int, s domain.Settings) Summary {
	policy := domain.ResolvePolicy(r, s)
	if !policy.Enabled {
		return Summary{Skipped: true}
	}
	return d.fanOut(ctx, policy.Deliverable(s), s, ReminderMessage(r, daysRemaining), r.ID)
}

// NotifyChange reports a create/update/delete using the same policy and
// channel fan-out as Notify.
func (d *Dispatcher) NotifyChange(ctx context.Context, action domain.ChangeAction, r domain.Resource, s domain.Settings, changes []domain.Change) Summary {
	policy := domain.ResolvePolicy(r, s)
	if !policy.Enabled {
		return Summary{Skipped: true}
	}
	return d.fanOut(ctx, policy.Deliverable(s), s, ChangeMessage(action, r, changes), r.ID)
}

// SendTest sends a test message over one channel, or over every channel with
// a configured target when ch is empty. Enabled flags are not consulted so
// that a channel can be verified before it is switched on.
func (d *Dispatcher) SendTest(ctx context.Context, ch Channel, s domain.Settings) Summary {
	flags := domain.ChannelFlags{
		Telegram: s.Telegram.ChatID != "",
		Email:    s.Email.Address != "",
		Webhook:  s.Webhook.URL != "",
	}
	if ch != "" {
		target := targetFor(s, ch)
		if target == "" {
			return Summary{Results: []ChannelResult{{Channel: ch, Err: fmt.Errorf("%s: no target configured", ch)}}}
		}
		flags = domain.ChannelFlags{
			Telegram: ch == ChannelTelegram,
			Email:    ch == ChannelEmail,
			Webhook:  ch == ChannelWebhook,
		}
	}
	return d.fanOut(ctx, flags, s, TestMessage(), "")
}

func (d *Dispatcher) fanOut(ctx context.Context, flags domain.ChannelFlags, s domain.Settings, msg Message, resourceID string) Summary {
	var sum Summary
	if !flags.Any() {
		d.logger.Debug("No deliverable channel",
			zap.String("resource", resourceID),
			zap.String("event", msg.Event),
		)
		return sum
	}
	for _, ch := range channelOrder {
		if !selected(flags, ch) {
			continue
		}
		err := d.send(ctx, ch, targetFor(s, ch), msg)
		sum.Results = append(sum.Results, ChannelResult{Channel: ch, Err: err})
		if err != nil {
			d.logger.Warn("Channel delivery failed",
				zap.String("channel", string(ch)),
				zap.String("resource", resourceID),
				zap.String("event", msg.Event),
				zap.Error(err),
			)
			continue
		}
		d.logger.Debug("Channel delivered",
			zap.String("channel", string(ch)),
			zap.String("resource", resourceID),
			zap.String("event", msg.Event),
		)
	}
	return sum
}

// send isolates one channel attempt, converting a panic into an error.
func (d *Dispatcher) send(ctx context.Context, ch Channel, target string, msg Message) (err error) {
	sender, ok := d.senders[ch]
	if !ok {
		channelSendTotal.WithLabelValues(string(ch), "error").Inc()
		return fmt.Errorf("%s: %w", ch, ErrNoSender)
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: sender panic: %v", ch, rec)
		}
		channelSendDuration.WithLabelValues(string(ch)).Observe(time.Since(start).Seconds())
		status := "success"
		if err != nil {
			status = "error"
		}
		channelSendTotal.WithLabelValues(string(ch), status).Inc()
	}()
	return sender.Send(ctx, target, msg)
}
