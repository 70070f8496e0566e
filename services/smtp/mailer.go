package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"time"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
)

type mailer struct {
	cfg *config.SMTPConfig
}

// NewMailer sends plain-text RFP emails through the configured SMTP relay.
func NewMailer(cfg *config.SMTPConfig) interfaces.Mailer {
	return &mailer{cfg: cfg}
}

func (m *mailer) Send(ctx context.Context, to, subject, body string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailer.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("to", to, "subject", subject)

	from, err := m.validate(to, subject, body)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	messageID := utils.GenerateMessageID(utils.ExtractDomainFromEmail(from), to)
	message, err := buildMessage(m.fromHeader(from), to, subject, body, messageID, utils.Now())
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	if err = m.sendToServer(ctx, from, to, message); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	span.LogKV("messageId", messageID)
	return messageID, nil
}

func (m *mailer) validate(to, subject, body string) (string, error) {
	if m.cfg.Server == "" {
		return "", errors.New("smtp server is not configured")
	}
	from := utils.FirstNonEmpty(m.cfg.From, m.cfg.Username)
	if !mailvalidate.ValidateEmailSyntax(from).IsValid {
		return "", errors.Wrapf(errs.ErrValidation, "from address %q is not valid", from)
	}
	if !mailvalidate.ValidateEmailSyntax(to).IsValid {
		return "", errors.Wrapf(errs.ErrValidation, "recipient %q is not valid", to)
	}
	if subject == "" {
		return "", errors.Wrap(errs.ErrValidation, "email must have a subject")
	}
	if body == "" {
		return "", errors.Wrap(errs.ErrValidation, "email must have a body")
	}
	return from, nil
}

func (m *mailer) fromHeader(from string) string {
	if m.cfg.FromName == "" {
		return from
	}
	return (&mail.Address{Name: m.cfg.FromName, Address: from}).String()
}

// buildMessage renders a single-part text/plain message with quoted-printable body.
func buildMessage(from, to, subject, body, messageID string, date time.Time) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)

	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", date.Format(time.RFC1123Z)},
		{"Message-ID", messageID},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
		{"Content-Transfer-Encoding", "quoted-printable"},
	}
	for _, header := range headers {
		buffer.WriteString(fmt.Sprintf("%s: %s\r\n", header[0], header[1]))
	}
	buffer.WriteString("\r\n")

	writer := quotedprintable.NewWriter(buffer)
	if _, err := writer.Write([]byte(body)); err != nil {
		return nil, errors.Wrap(err, "failed to encode body")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode body")
	}
	return buffer.Bytes(), nil
}

func (m *mailer) sendToServer(ctx context.Context, from, to string, message []byte) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailer.sendToServer")
	defer span.Finish()
	span.LogKV("smtp_server", m.cfg.Server, "smtp_port", m.cfg.Port, "security", m.cfg.Security)

	addr := fmt.Sprintf("%s:%d", m.cfg.Server, m.cfg.Port)
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	tlsConfig := &tls.Config{ServerName: m.cfg.Server}

	var conn net.Conn
	var err error
	switch enum.EmailSecurity(m.cfg.Security) {
	case enum.EmailSecuritySSL, enum.EmailSecurityTLS:
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	default:
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		err = fmt.Errorf("failed to connect to SMTP server: %w", err)
		tracing.TraceErr(span, err)
		return err
	}
	defer conn.Close()
	if m.cfg.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(2 * m.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, m.cfg.Server)
	if err != nil {
		err = fmt.Errorf("failed to create SMTP client: %w", err)
		tracing.TraceErr(span, err)
		return err
	}
	defer client.Close()

	if enum.EmailSecurity(m.cfg.Security) == enum.EmailSecurityStartTLS {
		if err = client.StartTLS(tlsConfig); err != nil {
			err = fmt.Errorf("failed to start TLS: %w", err)
			tracing.TraceErr(span, err)
			return err
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Server)
		if err = client.Auth(auth); err != nil {
			err = fmt.Errorf("SMTP authentication failed: %w", err)
			tracing.TraceErr(span, err)
			return err
		}
	}

	if err = deliver(client, from, to, message); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func deliver(client *smtp.Client, from, to string, message []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT command failed for %s: %w", to, err)
	}

	dataWriter, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}
	if _, err = dataWriter.Write(message); err != nil {
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err = dataWriter.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
