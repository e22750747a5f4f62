// Package fetcher pulls raw messages from a mailbox and turns them into
// extractor input.
package fetcher

import (
	"context"

	"receipt-extractor-go/internal/extractor"
)

// EmailFetcher interface for fetching emails
type EmailFetcher interface {
	FetchNewEmails(ctx context.Context) ([]extractor.RawEmail, error)
	Close() error
}
