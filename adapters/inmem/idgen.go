// Package inmem provides in-process adapter implementations.
package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/dealdraft/dealdraft/offer"
)

// UUIDGenerator issues random UUIDs for message and invocation IDs.
type UUIDGenerator struct{}

var _ offer.IDGenerator = UUIDGenerator{}

func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
