// Package inmem provides the in-memory offer store used by the server and
// tests. Records are cloned on every read and write so callers never share
// memory with the store.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealdraft/dealdraft/offerstore"
)

// Store keeps offers in memory, scoped by owner, with monotonic record
// versions.
type Store struct {
	mu     sync.RWMutex
	offers map[string]offerstore.Offer
	now    func() time.Time
	newID  func() string
}

var _ offerstore.Store = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDFunc overrides record ID generation, for deterministic tests.
func WithIDFunc(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		offers: map[string]offerstore.Offer{},
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, ownerID string, fields offerstore.CreateFields) (offerstore.Offer, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return offerstore.Offer{}, ctxErr
	}
	if ownerID == "" {
		return offerstore.Offer{}, fmt.Errorf("%w: owner ID is required", offerstore.ErrValidation)
	}
	if err := fields.Validate(); err != nil {
		return offerstore.Offer{}, fmt.Errorf("%w: %v", offerstore.ErrValidation, err)
	}

	now := s.now().UTC()
	record := offerstore.Offer{
		ID:            s.newID(),
		OwnerID:       ownerID,
		ClientName:    fields.ClientName,
		ClientAddress: fields.ClientAddress,
		Content:       "",
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[record.ID] = record
	return record, nil
}

func (s *Store) Get(_ context.Context, ownerID, offerID string) (offerstore.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownedLocked(ownerID, offerID)
}

func (s *Store) List(_ context.Context, ownerID string) ([]offerstore.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]offerstore.Offer, 0)
	for _, record := range s.offers {
		if record.OwnerID == ownerID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Update(ctx context.Context, ownerID, offerID string, fields offerstore.UpdateFields) (offerstore.Offer, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return offerstore.Offer{}, ctxErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fields.Empty() {
		return offerstore.Offer{}, fmt.Errorf("%w: at least one field is required", offerstore.ErrValidation)
	}

	record, err := s.ownedLocked(ownerID, offerID)
	if err != nil {
		return offerstore.Offer{}, err
	}
	if fields.ExpectedVersion != nil && *fields.ExpectedVersion != record.Version {
		return offerstore.Offer{}, fmt.Errorf(
			"%w: offer %q expected version %d, got %d",
			offerstore.ErrVersionConflict,
			offerID,
			record.Version,
			*fields.ExpectedVersion,
		)
	}

	if fields.Name != nil {
		record.Name = *fields.Name
	}
	if fields.Content != nil {
		record.Content = *fields.Content
	}
	if fields.ClientName != nil {
		if *fields.ClientName == "" {
			return offerstore.Offer{}, fmt.Errorf("%w: client name must not be blank", offerstore.ErrValidation)
		}
		record.ClientName = *fields.ClientName
	}
	if fields.ClientAddress != nil {
		if *fields.ClientAddress == "" {
			return offerstore.Offer{}, fmt.Errorf("%w: client address must not be blank", offerstore.ErrValidation)
		}
		record.ClientAddress = *fields.ClientAddress
	}

	record.Version++
	record.UpdatedAt = s.now().UTC()
	s.offers[record.ID] = record
	return record, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, offerID string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedLocked(ownerID, offerID); err != nil {
		return err
	}
	delete(s.offers, offerID)
	return nil
}

// ownedLocked resolves an offer for its owner. A record owned by someone
// else is reported as not found, never as forbidden, so offer IDs cannot be
// probed across accounts.
func (s *Store) ownedLocked(ownerID, offerID string) (offerstore.Offer, error) {
	record, ok := s.offers[offerID]
	if !ok || record.OwnerID != ownerID {
		return offerstore.Offer{}, fmt.Errorf("%w: %q", offerstore.ErrNotFound, offerID)
	}
	return record, nil
}
