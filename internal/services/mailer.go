package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"strconv"
	"strings"
	"time"

	"cartrack-backend/internal/models"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// implicitTLSPort is the SMTPS port where TLS starts before the greeting
const implicitTLSPort = 465

// SendResult is the outcome of one delivery attempt
type SendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Mailer delivers one message to a list of recipients with the sender's own
// SMTP account. Failures are reported in the result, never as a panic or error.
type Mailer interface {
	Send(ctx context.Context, creds models.SMTPCredentials, recipients []string, subject, body string) SendResult
}

// SMTPMailer sends mail through the sender's SMTP server
type SMTPMailer struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewSMTPMailer(timeout time.Duration, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{timeout: timeout, logger: logger}
}

func (m *SMTPMailer) Send(ctx context.Context, creds models.SMTPCredentials, recipients []string, subject, body string) SendResult {
	if !creds.Complete() {
		return SendResult{Success: false, Message: "SMTP credentials are incomplete"}
	}
	if len(recipients) == 0 {
		return SendResult{Success: false, Message: "no recipients"}
	}

	msg := BuildMessage(creds.LoginEmail, recipients, subject, body, time.Now())

	start := time.Now()
	if err := m.deliver(ctx, creds, recipients, msg); err != nil {
		m.logger.Warn("❌ SMTP delivery failed",
			zap.String("host", creds.Host),
			zap.Int("port", creds.Port),
			zap.Int("recipients", len(recipients)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return SendResult{Success: false, Message: err.Error()}
	}

	m.logger.Info("📧 Email sent",
		zap.String("host", creds.Host),
		zap.Int("recipients", len(recipients)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return SendResult{Success: true, Message: fmt.Sprintf("Email sent to %d recipient(s)", len(recipients))}
}

func (m *SMTPMailer) deliver(ctx context.Context, creds models.SMTPCredentials, recipients []string, msg []byte) error {
	addr := net.JoinHostPort(creds.Host, strconv.Itoa(creds.Port))
	tlsConfig := &tls.Config{ServerName: creds.Host, MinVersion: tls.VersionTLS12}

	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	conn = &commandDeadlineConn{Conn: conn, timeout: m.timeout}

	var c *smtp.Client
	switch {
	case creds.Port == implicitTLSPort:
		c = smtp.NewClient(tls.Client(conn, tlsConfig))
	case creds.UseTLS:
		c, err = smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	default:
		c = smtp.NewClient(conn)
	}
	defer c.Close()

	c.CommandTimeout = m.timeout
	c.SubmissionTimeout = m.timeout

	if err := c.Auth(authClient(c, creds)); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := c.SendMail(creds.LoginEmail, recipients, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	if err := c.Quit(); err != nil {
		m.logger.Debug("SMTP quit failed", zap.Error(err))
	}
	return nil
}

// commandDeadlineConn caps every deadline the SMTP client sets, including the
// greeting and STARTTLS exchange that run before CommandTimeout can be set
type commandDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *commandDeadlineConn) SetDeadline(t time.Time) error {
	if limit := time.Now().Add(c.timeout); !t.IsZero() && t.After(limit) {
		t = limit
	}
	return c.Conn.SetDeadline(t)
}

// authClient prefers LOGIN (required by Outlook/Hotmail) and falls back to
// PLAIN when the server does not advertise it
func authClient(c *smtp.Client, creds models.SMTPCredentials) sasl.Client {
	if !c.SupportsAuth(sasl.Login) && c.SupportsAuth(sasl.Plain) {
		return sasl.NewPlainClient("", creds.LoginEmail, creds.Secret)
	}
	return sasl.NewLoginClient(creds.LoginEmail, creds.Secret)
}

// BuildMessage renders a plain-text RFC 5322 message
func BuildMessage(from string, to []string, subject, body string, date time.Time) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	qp.Write([]byte(strings.ReplaceAll(body, "\n", "\r\n")))
	qp.Close()
	return buf.Bytes()
}
