package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record is missing from storage.
	ErrNotFound = errors.New("storage: record not found")

	// ErrInvalidIdentity is returned when an operation is attempted without an identity.
	ErrInvalidIdentity = errors.New("storage: identity is required")
)

// DeadlineStore persists at most one deadline record per identity.
//
// Save overwrites any previous record for the identity. Load returns
// ErrNotFound when nothing is stored. Delete succeeds when the record is
// already absent.
type DeadlineStore interface {
	Save(ctx context.Context, identity string, record Record) error
	Load(ctx context.Context, identity string) (*Record, error)
	Delete(ctx context.Context, identity string) error
	Close() error
}

// CheckIdentity rejects empty identities.
func CheckIdentity(identity string) error {
	if identity == "" {
		return ErrInvalidIdentity
	}
	return nil
}
