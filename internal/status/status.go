// Package status tracks a source email through review: every email starts
// in needsReview and leaves it at most once.
package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Status is the review state of a source email
type Status string

const (
	NeedsReview        Status = "needsReview"
	TransactionCreated Status = "transactionCreated"
	Archived           Status = "archived"
)

// ErrEmailNotFound is returned by stores for unknown email ids
var ErrEmailNotFound = errors.New("email not found")

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case NeedsReview, TransactionCreated, Archived:
		return true
	}
	return false
}

// IsArchived reports whether s is hidden from the default view.
// transactionCreated counts as archived for filtering.
func (s Status) IsArchived() bool {
	return s == TransactionCreated || s == Archived
}

// Parse converts a string into a Status
func Parse(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown email status %q", s)
	}
	return st, nil
}

// Store persists email statuses. CompareAndSet must be atomic: it changes
// the status to `to` only while it still equals `from`, and reports whether
// it did.
type Store interface {
	Status(ctx context.Context, emailID string) (Status, error)
	CompareAndSet(ctx context.Context, emailID string, from, to Status) (bool, error)
}

// Service proposes transitions and lets the store commit them
type Service struct {
	store Store
}

// NewService creates a lifecycle service over store
func NewService(store Store) *Service {
	return &Service{store: store}
}

// MarkTransactionCreated records that a transaction was created from the
// email. Only the first call changes anything; repeats return false.
func (s *Service) MarkTransactionCreated(ctx context.Context, emailID string) (bool, error) {
	return s.transition(ctx, emailID, TransactionCreated)
}

// Archive hides an email without creating a transaction. Archiving an email
// that already left needsReview is a no-op.
func (s *Service) Archive(ctx context.Context, emailID string) (bool, error) {
	return s.transition(ctx, emailID, Archived)
}

func (s *Service) transition(ctx context.Context, emailID string, to Status) (bool, error) {
	changed, err := s.store.CompareAndSet(ctx, emailID, NeedsReview, to)
	if err != nil {
		return false, fmt.Errorf("failed to set email %s to %s: %w", emailID, to, err)
	}
	if !changed {
		current, err := s.store.Status(ctx, emailID)
		if err != nil {
			return false, fmt.Errorf("failed to read status of email %s: %w", emailID, err)
		}
		logrus.Debugf("Email %s already %s, %s ignored", emailID, current, to)
		return false, nil
	}
	logrus.Infof("Email %s moved to %s", emailID, to)
	return true, nil
}
