// Package gmail delivers budget alerts through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"spendtrack/internal/notify"

	gmailapi "google.golang.org/api/gmail/v1"
	goption "google.golang.org/api/option"
)

type Sender struct {
	svc  *gmailapi.Service
	from string
}

var _ notify.Dispatcher = (*Sender)(nil)

// NewFromEnv creates a Gmail sender using environment variables.
// Required: GMAIL_SENDER (the From address).
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS; falls back to Application Default
// Credentials when none is set.
func NewFromEnv(ctx context.Context) (*Sender, error) {
	from := strings.TrimSpace(os.Getenv("GMAIL_SENDER"))
	if from == "" {
		return nil, errors.New("missing GMAIL_SENDER")
	}

	opts := []goption.ClientOption{goption.WithScopes(gmailapi.GmailSendScope)}

	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case serviceAccountJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(serviceAccountJSON)))
	case serviceAccountFile != "":
		opts = append(opts, goption.WithCredentialsFile(serviceAccountFile))
	}

	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	return &Sender{svc: svc, from: from}, nil
}

// Send delivers one alert email. Failures are returned for the caller to log;
// they are never fatal.
func (s *Sender) Send(ctx context.Context, recipient, subject, body string) error {
	msg := &gmailapi.Message{Raw: encodeMessage(s.from, recipient, subject, body)}
	if _, err := s.svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send alert mail to %s: %w", recipient, err)
	}
	return nil
}

// encodeMessage builds the base64url-encoded RFC 822 payload the Gmail API
// expects.
func encodeMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return base64.RawURLEncoding.EncodeToString([]byte(b.String()))
}
