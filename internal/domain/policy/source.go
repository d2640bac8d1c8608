package policy

import "context"

// Repository is the storage collaborator holding the policy book.
type Repository interface {
	FindAll(ctx context.Context) ([]Record, error)
}

// Source is what the reporting core reads from.  All may serve a cached
// snapshot; Reload always bypasses it.
type Source interface {
	All(ctx context.Context) ([]Record, error)
	Reload(ctx context.Context) ([]Record, error)
}
