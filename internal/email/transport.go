package email

import (
	"context"
)

// Message is everything the transport needs for one send. Provider
// configuration stays opaque to the pipeline.
type Message struct {
	To       string `validate:"required,email"`
	Subject  string
	HTML     string `validate:"required"`
	From     string `validate:"required,email"`
	FromName string
	ReplyTo  string `validate:"omitempty,email"`
	Metadata map[string]string
}

// Result is the provider's answer to one send.
type Result struct {
	Provider          string
	ProviderMessageID string
}

// Transport is the opaque send capability: one email in, success or
// failure plus a provider message id out.
type Transport interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
}
