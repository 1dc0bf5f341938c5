// Package notify renders resource notifications and delivers them over the
// configured channels (Telegram, Email, Webhook).
//
// # Contract
//
// The Dispatcher:
//  1. Resolves the resource's effective policy against the global settings.
//  2. Skips policy-disabled resources without touching any channel.
//  3. Attempts every selected channel whose global target is configured, in the
//     fixed order Telegram, Email, Webhook. A failing channel never prevents the
//     next one from being attempted.
//  4. Returns a Summary of per-channel results; Success is true iff at least one
//     channel delivered.
//
// Senders make exactly one delivery attempt and return an error instead of
// panicking. Retrying is left to the next sweep.
package notify
