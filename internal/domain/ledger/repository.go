package ledger

import (
	"context"
)

type Repository interface {
	// LoadSnapshot fetches every non-deleted loan, installment, subscription
	// and ledger entry in one consistent read.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// SoftDeleteEntry stamps deleted_at/deleted_by on a ledger entry. When the
	// entry is an interest charge, the compensating balance reversal runs
	// inside the same transaction. Returns the deleted entry.
	SoftDeleteEntry(ctx context.Context, entryID int64, deletedBy string) (*Entry, error)

	// ListCustomerIDs returns the distinct ids of all customers with any
	// financial activity, for batch runs.
	ListCustomerIDs(ctx context.Context) ([]int64, error)
}
