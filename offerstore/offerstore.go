// Package offerstore defines the owner-scoped persistence contract for offer
// documents. Implementations scope every read and write by owner identity;
// a record belonging to someone else is indistinguishable from a missing one.
package offerstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an offer does not exist for the caller.
	ErrNotFound = errors.New("offer not found")
	// ErrValidation is returned when required fields are missing.
	ErrValidation = errors.New("offer validation failed")
	// ErrVersionConflict is returned on an optimistic save against a stale record.
	ErrVersionConflict = errors.New("offer version conflict")
)

// Offer is one stored offer record.
type Offer struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name,omitempty"`
	ClientName    string    `json:"client_name"`
	ClientAddress string    `json:"client_address"`
	Content       string    `json:"content"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateFields carries the required fields for a new offer.
type CreateFields struct {
	ClientName    string
	ClientAddress string
}

// UpdateFields carries a partial update; nil fields are left untouched.
// At least one field must be set. ExpectedVersion, when present, makes the
// update optimistic: it applies only against that record version.
type UpdateFields struct {
	Name            *string
	Content         *string
	ClientName      *string
	ClientAddress   *string
	ExpectedVersion *int64
}

// Empty reports whether the update carries no field changes.
func (f UpdateFields) Empty() bool {
	return f.Name == nil && f.Content == nil && f.ClientName == nil && f.ClientAddress == nil
}

// Validate rejects structurally invalid inputs before any store mutation.
func (f CreateFields) Validate() error {
	if f.ClientName == "" {
		return errors.New("client name is required")
	}
	if f.ClientAddress == "" {
		return errors.New("client address is required")
	}
	return nil
}

// Store persists offers scoped by owner.
type Store interface {
	Create(ctx context.Context, ownerID string, fields CreateFields) (Offer, error)
	Get(ctx context.Context, ownerID, offerID string) (Offer, error)
	List(ctx context.Context, ownerID string) ([]Offer, error)
	Update(ctx context.Context, ownerID, offerID string, fields UpdateFields) (Offer, error)
	Delete(ctx context.Context, ownerID, offerID string) error
}
