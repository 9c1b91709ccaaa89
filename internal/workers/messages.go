package workers

import (
	"context"

	"stockalert/internal/domain/watchlist"
	"stockalert/pkg/logger"
	"stockalert/pkg/templates"
)

// Messages renders notification texts from the notifications/* templates
type Messages struct {
	templates *templates.Registry
}

// NewMessages uses reg, or the embedded templates when reg is nil
func NewMessages(reg *templates.Registry) *Messages {
	if reg == nil {
		reg = templates.Get()
	}
	return &Messages{templates: reg}
}

type alertData struct {
	ISIN   string
	Reason string
	Price  string
}

type isinData struct {
	ISIN string
}

type stoppedData struct {
	Failures int
}

type fatalData struct {
	Worker string
	Error  string
}

// Alert is sent when a threshold fires
func (m *Messages) Alert(isin string, breach watchlist.Breach, price float64) (subject, body string) {
	return m.pair("notifications/alert", alertData{
		ISIN:   isin,
		Reason: breach.Reason(),
		Price:  watchlist.FormatNumber(price),
	})
}

// PriceFailure is sent when a lookup fails after all retries
func (m *Messages) PriceFailure(isin string) (subject, body string) {
	return m.pair("notifications/price_failure", isinData{ISIN: isin})
}

// ServiceStopped is sent when lookups failed too many times in a row
func (m *Messages) ServiceStopped(failures int) (subject, body string) {
	return m.pair("notifications/service_stopped", stoppedData{Failures: failures})
}

// Fatal is sent when a worker exhausted its unexpected error budget
func (m *Messages) Fatal(worker string, err error) (subject, body string) {
	return m.pair("notifications/fatal", fatalData{Worker: worker, Error: err.Error()})
}

func (m *Messages) pair(id string, data any) (subject, body string) {
	return m.render(id+"_subject", data), m.render(id+"_body", data)
}

// render never fails the caller; a broken template degrades to its ID
func (m *Messages) render(id string, data any) string {
	out, err := m.templates.Render(id, data)
	if err != nil {
		logger.Get().Errorw("Failed to render notification template", "template", id, "error", err)
		return id
	}
	return out
}

// NotifyFatal returns a FatalHandler that emails the reason the service stopped
func NotifyFatal(n Notifier, msgs *Messages) FatalHandler {
	if msgs == nil {
		msgs = NewMessages(nil)
	}
	return func(ctx context.Context, worker string, err error) {
		subject, body := msgs.Fatal(worker, err)
		n.Notify(ctx, subject, body)
	}
}
