package status

// Filter decides which emails the default list shows. It never changes a
// status, only visibility.
type Filter struct {
	ShowArchivedEmails bool `mapstructure:"show_archived_emails" json:"show_archived_emails"`
}

// Includes reports whether an email in status s is visible
func (f Filter) Includes(s Status) bool {
	if f.ShowArchivedEmails {
		return true
	}
	return s == NeedsReview
}

// Statuses lists the statuses a query should select
func (f Filter) Statuses() []Status {
	if f.ShowArchivedEmails {
		return []Status{NeedsReview, TransactionCreated, Archived}
	}
	return []Status{NeedsReview}
}

// Apply keeps the items whose status is visible
func Apply[T any](f Filter, items []T, statusOf func(T) Status) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if f.Includes(statusOf(it)) {
			out = append(out, it)
		}
	}
	return out
}
