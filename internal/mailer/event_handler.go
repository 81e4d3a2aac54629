package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/frahmantamala/supplier-portal/internal/core/events"
)

const passwordResetSubject = "Recuperação de senha"

var passwordResetTemplate = template.Must(template.New("password_reset").Parse(
	`<p>Olá, {{.Name}}</p><p>Clique para redefinir sua senha: <a href="{{.Link}}">{{.Link}}</a></p>`))

// EventHandler turns auth events into outgoing mail. Delivery failures are
// returned to the bus, which only logs them.
type EventHandler struct {
	mailer Mailer
	logger *slog.Logger
}

func NewEventHandler(m Mailer, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{
		mailer: m,
		logger: logger,
	}
}

func (h *EventHandler) HandlePasswordResetRequested(ctx context.Context, event events.Event) error {
	resetEvent, ok := event.(*events.PasswordResetRequestedEvent)
	if !ok {
		h.logger.Error("invalid event type for password reset handler", "event_type", event.EventType())
		return fmt.Errorf("expected PasswordResetRequestedEvent, got %T", event)
	}

	msg, err := RenderPasswordReset(resetEvent.Email, resetEvent.Name, resetEvent.ResetLink)
	if err != nil {
		return err
	}

	if err := h.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("password reset mail for user %s: %w", resetEvent.UserID, err)
	}

	h.logger.Info("password reset mail dispatched",
		"user_id", resetEvent.UserID,
		"event_id", resetEvent.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePasswordResetRequested, h.HandlePasswordResetRequested)

	h.logger.Info("mailer event handlers registered",
		"handlers", []string{events.EventTypePasswordResetRequested})
}

// SubscribePasswordReset wires m to password reset requests published on bus.
func SubscribePasswordReset(bus *events.EventBus, m Mailer, logger *slog.Logger) *EventHandler {
	h := NewEventHandler(m, logger)
	h.RegisterEventHandlers(bus)
	return h
}

func RenderPasswordReset(to, name, link string) (Message, error) {
	var body bytes.Buffer
	data := struct {
		Name string
		Link string
	}{Name: name, Link: link}
	if err := passwordResetTemplate.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render password reset mail: %w", err)
	}
	return Message{
		To:      to,
		Subject: passwordResetSubject,
		HTML:    body.String(),
	}, nil
}
