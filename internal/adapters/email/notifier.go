package email

import (
	"context"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"stockalert/internal/metrics"
	"stockalert/pkg/errors"
	"stockalert/pkg/logger"
)

// Transports
const (
	TransportSMTP     = "smtp"
	TransportSendmail = "sendmail"
)

const defaultTimeout = 30 * time.Second

// Config contains mail delivery settings
type Config struct {
	Transport    string
	From         string
	To           []string
	SMTPServer   string
	SMTPPort     int
	Username     string
	Password     string
	SendmailPath string
	Timeout      time.Duration
}

// ParseRecipients splits a comma separated recipient list
func ParseRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

type sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

type smtpSender struct {
	client *mail.Client
}

func (s *smtpSender) Send(ctx context.Context, msg *mail.Msg) error {
	return s.client.DialAndSendWithContext(ctx, msg)
}

type sendmailSender struct {
	path string
}

func (s *sendmailSender) Send(ctx context.Context, msg *mail.Msg) error {
	return msg.WriteToSendmailWithContext(ctx, s.path)
}

// Notifier delivers plain text email notifications.
// Delivery problems are logged and reported, never returned to the caller.
type Notifier struct {
	cfg    Config
	sender sender
	logger *logger.Logger
}

// New creates a notifier for the configured transport
func New(cfg Config, log *logger.Logger) (*Notifier, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "sender and recipient are required")
	}

	var s sender
	switch cfg.Transport {
	case TransportSMTP:
		opts := []mail.Option{
			mail.WithPort(cfg.SMTPPort),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
			mail.WithTLSPolicy(mail.TLSMandatory),
			mail.WithTimeout(cfg.Timeout),
		}
		if cfg.SMTPPort == 465 {
			opts = append(opts, mail.WithSSL())
		}
		client, err := mail.NewClient(cfg.SMTPServer, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create SMTP client")
		}
		s = &smtpSender{client: client}
	case TransportSendmail:
		s = &sendmailSender{path: cfg.SendmailPath}
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown mail transport %q", cfg.Transport)
	}

	return &Notifier{
		cfg:    cfg,
		sender: s,
		logger: log.With("component", "email", "transport", cfg.Transport),
	}, nil
}

// Notify sends a message with the given subject and body
func (n *Notifier) Notify(ctx context.Context, subject, body string) {
	msg, err := n.buildMessage(subject, body)
	if err == nil {
		err = n.sender.Send(ctx, msg)
	}
	metrics.RecordNotification(n.cfg.Transport, err)

	if err != nil {
		n.logger.Errorw("Failed to send notification",
			"subject", subject,
			"to", strings.Join(n.cfg.To, ","),
			"error", err,
		)
		return
	}

	n.logger.Infow("Notification sent", "subject", subject, "to", strings.Join(n.cfg.To, ","))
}

func (n *Notifier) buildMessage(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, errors.Wrapf(err, "invalid sender %q", n.cfg.From)
	}
	if err := msg.To(n.cfg.To...); err != nil {
		return nil, errors.Wrap(err, "invalid recipient")
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
