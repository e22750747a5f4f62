package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"receipt-extractor-go/internal/config"
	"receipt-extractor-go/internal/extractor"
)

// IMAPFetcher implements EmailFetcher using IMAP. Messages are read with
// BODY.PEEK[] so fetching never marks mail as seen.
type IMAPFetcher struct {
	mu        sync.Mutex
	client    *client.Client
	mailbox   string
	opts      ParseOptions
	lastCheck time.Time
}

// NewIMAPFetcher creates a new IMAP fetcher
func NewIMAPFetcher(cfg *config.GmailConfig, opts ParseOptions) (*IMAPFetcher, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	mailbox := cfg.IMAPMailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}

	return &IMAPFetcher{
		client:    c,
		mailbox:   mailbox,
		opts:      opts,
		lastCheck: time.Now().Add(-24 * time.Hour),
	}, nil
}

// FetchNewEmails fetches messages received since the last check
func (f *IMAPFetcher) FetchNewEmails(ctx context.Context) ([]extractor.RawEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := f.client.Select(f.mailbox, true); err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", f.mailbox, err)
	}

	started := time.Now()
	criteria := imap.NewSearchCriteria()
	criteria.Since = f.lastCheck

	uids, err := f.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(uids) == 0 {
		f.lastCheck = started
		return []extractor.RawEmail{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- f.client.UidFetch(seqset, []imap.FetchItem{section.FetchItem(), imap.FetchUid}, messages)
	}()

	var emails []extractor.RawEmail
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			logrus.Warnf("IMAP message %d has no body", msg.Uid)
			continue
		}
		email, err := ParseMessage(ctx, r, f.opts)
		if err != nil {
			logrus.Warnf("Failed to parse IMAP message %d: %v", msg.Uid, err)
			continue
		}
		if email.ID == "" {
			email.ID = fmt.Sprintf("imap-%s-%d", f.mailbox, msg.Uid)
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	f.lastCheck = started
	return emails, nil
}

// Close closes the IMAP fetcher
func (f *IMAPFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client.Logout()
}
