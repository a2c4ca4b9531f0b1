package calls

import "context"

// Repository defines the storage surface for call records.
//
// FindByAnyID matches the provider call id or the internal record id in a
// single lookup. Upsert inserts or merges keyed by provider call id;
// merge semantics never null out a populated field, which is what makes
// duplicate and out-of-order event application safe without locks.
type Repository interface {
	FindByAnyID(ctx context.Context, id string) (*CallRecord, error)
	Upsert(ctx context.Context, rec CallRecord) (*CallRecord, error)
}
