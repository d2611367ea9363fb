package core

import (
	"fmt"
	"net/mail"
	"strings"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // text/plain content

		// rendered contents
		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render prepares the message contents for sending. Plain-text bodies are
// wrapped in a minimal HTML alternative.
func (m *EmailMessage) Render() error {
	if m.BodyStr == "" {
		return nil
	}
	m.TextContent = m.BodyStr
	html := new(strings.Builder)
	for _, line := range strings.Split(m.BodyStr, "\n") {
		_, _ = fmt.Fprintf(html, "<p>%s</p>", line)
	}
	m.HTMLContent = html.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return len(m.To) > 0 || len(m.Cc) > 0 || len(m.Bcc) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != ""
}
