package status

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveTwiceIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, "msg-1"))
	svc := NewService(store)

	changed, err := svc.Archive(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.Archive(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, changed)

	s, err := store.Status(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, Archived, s)
}

func TestMarkTransactionCreatedOnlyFromNeedsReview(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, "msg-1"))
	svc := NewService(store)

	changed, err := svc.MarkTransactionCreated(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, changed)

	// a retried create must not flip the email again
	changed, err = svc.MarkTransactionCreated(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = svc.Archive(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, changed)

	s, err := store.Status(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, TransactionCreated, s)
}

func TestTransitionUnknownEmail(t *testing.T) {
	svc := NewService(NewMemoryStore())
	_, err := svc.Archive(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrEmailNotFound))
}

func TestCreateKeepsExistingStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, "msg-1"))
	_, err := NewService(store).Archive(ctx, "msg-1")
	require.NoError(t, err)

	require.NoError(t, store.Create(ctx, "msg-1"))
	s, err := store.Status(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, Archived, s)

	assert.Error(t, store.Create(ctx, ""))
}

func TestConcurrentTransitionsCommitOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, "msg-1"))
	svc := NewService(store)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := svc.MarkTransactionCreated(ctx, "msg-1")
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name         string
		showArchived bool
		status       Status
		want         bool
	}{
		{"needs review hidden toggle off", false, NeedsReview, true},
		{"transaction created toggle off", false, TransactionCreated, false},
		{"archived toggle off", false, Archived, false},
		{"needs review toggle on", true, NeedsReview, true},
		{"transaction created toggle on", true, TransactionCreated, true},
		{"archived toggle on", true, Archived, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Filter{ShowArchivedEmails: tt.showArchived}
			assert.Equal(t, tt.want, f.Includes(tt.status))
		})
	}
}

func TestFilterDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Create(ctx, id))
	}
	svc := NewService(store)
	_, err := svc.MarkTransactionCreated(ctx, "b")
	require.NoError(t, err)
	_, err = svc.Archive(ctx, "c")
	require.NoError(t, err)

	visible := store.List(Filter{})
	assert.Equal(t, []string{"a"}, visible)

	all := store.List(Filter{ShowArchivedEmails: true})
	sort.Strings(all)
	assert.Equal(t, []string{"a", "b", "c"}, all)

	s, err := store.Status(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, TransactionCreated, s)
}

func TestApply(t *testing.T) {
	type row struct {
		id string
		s  Status
	}
	rows := []row{{"a", NeedsReview}, {"b", Archived}, {"c", TransactionCreated}}
	got := Apply(Filter{}, rows, func(r row) Status { return r.s })
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].id)
	assert.Len(t, Apply(Filter{ShowArchivedEmails: true}, rows, func(r row) Status { return r.s }), 3)
}

func TestParse(t *testing.T) {
	s, err := Parse("archived")
	require.NoError(t, err)
	assert.Equal(t, Archived, s)
	assert.True(t, s.IsArchived())
	assert.False(t, NeedsReview.IsArchived())

	_, err = Parse("deleted")
	assert.Error(t, err)
}
