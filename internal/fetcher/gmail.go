package fetcher

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"receipt-extractor-go/internal/config"
	"receipt-extractor-go/internal/extractor"
)

// GmailAPIFetcher implements EmailFetcher using the Gmail API. Messages
// are requested in raw format and parsed locally so both fetchers share
// one MIME path.
type GmailAPIFetcher struct {
	mu        sync.Mutex
	service   *gmail.Service
	userEmail string
	query     string
	opts      ParseOptions
	lastCheck time.Time
}

// NewGmailAPIFetcher creates a new Gmail API fetcher
func NewGmailAPIFetcher(cfg *config.GmailConfig, opts ParseOptions) (*GmailAPIFetcher, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailAPIFetcher{
		service:   service,
		userEmail: cfg.UserEmail,
		query:     cfg.Query,
		opts:      opts,
		lastCheck: time.Now().Add(-24 * time.Hour),
	}, nil
}

// FetchNewEmails fetches messages received since the last check
func (f *GmailAPIFetcher) FetchNewEmails(ctx context.Context) ([]extractor.RawEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	started := time.Now()
	query := strings.TrimSpace(fmt.Sprintf("%s after:%d", f.query, f.lastCheck.Unix()))

	var ids []string
	call := f.service.Users.Messages.List(f.userEmail).Q(query)
	err := call.Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	emails := make([]extractor.RawEmail, 0, len(ids))
	for _, id := range ids {
		msg, err := f.service.Users.Messages.Get(f.userEmail, id).Format("raw").Context(ctx).Do()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.Warnf("Failed to get message %s: %v", id, err)
			continue
		}

		email, err := f.parseRaw(ctx, msg)
		if err != nil {
			logrus.Warnf("Failed to parse message %s: %v", id, err)
			continue
		}
		emails = append(emails, email)
	}

	f.lastCheck = started
	return emails, nil
}

func (f *GmailAPIFetcher) parseRaw(ctx context.Context, msg *gmail.Message) (extractor.RawEmail, error) {
	raw, err := decodeRaw(msg.Raw)
	if err != nil {
		return extractor.RawEmail{}, fmt.Errorf("failed to decode raw message: %w", err)
	}
	email, err := ParseMessage(ctx, bytes.NewReader(raw), f.opts)
	if err != nil {
		return extractor.RawEmail{}, err
	}
	email.ID = msg.Id
	if email.Date.IsZero() && msg.InternalDate > 0 {
		email.Date = time.UnixMilli(msg.InternalDate)
	}
	return email, nil
}

// decodeRaw accepts padded and unpadded base64url
func decodeRaw(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Close closes the Gmail API fetcher
func (f *GmailAPIFetcher) Close() error {
	return nil
}
