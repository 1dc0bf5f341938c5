package assets

import "embed"

// TemplatesFS holds the email bodies rendered by the notification senders.
//
//go:embed templates/*.tmpl
var TemplatesFS embed.FS

const (
	EmailHTML = "templates/email.html.tmpl"
	EmailText = "templates/email.txt.tmpl"
)
