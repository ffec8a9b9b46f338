package email

import (
	"context"
	"errors"
)

// Message es un correo listo para enviar, con cuerpo HTML y alternativa en texto plano.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender define la interfaz para el envío de correos transaccionales.
// Devuelve el Message-ID asignado cuando el envío es aceptado.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ Message) (string, error) {
	if s.reason == "" {
		return "", errors.New("email sender disabled")
	}
	return "", errors.New(s.reason)
}
