package domain

// Policy is the effective notification policy of one resource.
type Policy struct {
	Enabled       bool
	Channels      ChannelFlags
	ThresholdDays int
}

// ResolvePolicy merges a resource's override with the global settings.
//
// Absent settings behave as {enabled: true, useGlobal: true}. With UseGlobal
// the resource's ReminderDays and Channels are ignored even when present. Without
// it, the per-resource channel flags replace the global ones entirely.
func ResolvePolicy(r Resource, s Settings) Policy {
	n := r.Notification
	if n != nil && !n.Enabled {
		return Policy{Enabled: false}
	}

	if n == nil || n.UseGlobal {
		return Policy{
			Enabled: true,
			Channels: ChannelFlags{
				Telegram: s.Telegram.Enabled,
				Email:    s.Email.Enabled,
				Webhook:  s.Webhook.Enabled,
			},
			ThresholdDays: s.ReminderDays,
		}
	}

	p := Policy{Enabled: true, ThresholdDays: s.ReminderDays}
	if n.ReminderDays != nil {
		p.ThresholdDays = *n.ReminderDays
	}
	if n.Channels != nil {
		p.Channels = *n.Channels
	}
	return p
}

// Deliverable narrows the selected channels to those whose global target is
// configured. A missing target is a silent skip, not an error.
func (p Policy) Deliverable(s Settings) ChannelFlags {
	return ChannelFlags{
		Telegram: p.Channels.Telegram && s.Telegram.ChatID != "",
		Email:    p.Channels.Email && s.Email.Address != "",
		Webhook:  p.Channels.Webhook && s.Webhook.URL != "",
	}
}
