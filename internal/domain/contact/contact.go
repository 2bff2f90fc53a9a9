package contact

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"optimahub/internal/gateway"
)

const MaxMessageLength = 5000

var (
	ErrInvalidEmail   = errors.New("email must be a valid address")
	ErrEmptyMessage   = errors.New("message is required")
	ErrMessageTooLong = errors.New("message is too long")
)

type Message struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Validate trims m and checks it before anything is sent.
func (m Message) Validate() (Message, error) {
	m.Email = strings.TrimSpace(m.Email)
	m.Message = strings.TrimSpace(m.Message)
	addr, err := mail.ParseAddress(m.Email)
	if err != nil || addr.Address != m.Email {
		return Message{}, ErrInvalidEmail
	}
	if m.Message == "" {
		return Message{}, ErrEmptyMessage
	}
	if len(m.Message) > MaxMessageLength {
		return Message{}, ErrMessageTooLong
	}
	return m, nil
}

// Send posts m to the contact endpoint. Only a 201 answer counts as delivered.
func Send(ctx context.Context, api gateway.API, m Message) error {
	m, err := m.Validate()
	if err != nil {
		return err
	}
	return api.Do(ctx, gateway.Post("/contact-us", m).Expect(http.StatusCreated), nil)
}
