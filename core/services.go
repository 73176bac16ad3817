package core

import (
	"context"
	"net/mail"
)

type (
	// Logger is any service that can log messages & errors.
	// args may hold errors, maps of extra data and the current session (attached as the reported person).
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// AdvisoryService answers free-form questions about a cohort given a text corpus of their dailies.
	AdvisoryService interface {
		Ask(ctx context.Context, question, corpus string, participants []string) (string, error)
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}

	EmailMessage struct {
		To          []mail.Address
		Subject     string
		TextContent string
		HTMLContent string
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
