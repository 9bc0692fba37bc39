package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/labkit/internal/db"
	"github.com/kailas-cloud/labkit/internal/domain"
)

const keySegment = "bundle:"

// kvClient is the consumer interface for the key-value sink (ISP).
type kvClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KVStore keeps each bundle as one JSON value at <prefix>bundle:<name>.
type KVStore struct {
	kv     kvClient
	prefix string
	driver string
}

// NewKVStore creates a key-value sink. driver is reported in metrics and logs.
func NewKVStore(kv kvClient, prefix, driver string) *KVStore {
	if driver == "" {
		driver = DriverValkey
	}
	return &KVStore{kv: kv, prefix: prefix, driver: driver}
}

// Driver returns the sink name.
func (s *KVStore) Driver() string { return s.driver }

// Key returns the key a bundle is stored under.
func (s *KVStore) Key(name string) string {
	return s.prefix + keySegment + name
}

// Save writes the bundle, replacing any previous value.
func (s *KVStore) Save(ctx context.Context, b domain.Bundle) error {
	if err := validate(b); err != nil {
		return err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	if err := s.kv.Set(ctx, s.Key(b.Name), data); err != nil {
		return fmt.Errorf("store bundle %s: %w", b.Name, err)
	}
	return nil
}

// Load reads a bundle back. A missing key returns domain.ErrNotFound.
func (s *KVStore) Load(ctx context.Context, name string) (domain.Bundle, error) {
	data, err := s.kv.Get(ctx, s.Key(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Bundle{}, fmt.Errorf("bundle %s: %w", name, domain.ErrNotFound)
		}
		return domain.Bundle{}, fmt.Errorf("get bundle %s: %w", name, err)
	}

	var b domain.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.Bundle{}, fmt.Errorf("unmarshal bundle %s: %w", name, err)
	}
	if b.Metadata == nil {
		b.Metadata = map[string]string{}
	}
	return b, nil
}
