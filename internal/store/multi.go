package store

import (
	"context"
	"errors"
)

// MultiStore writes to every backend and reads from the first.
type MultiStore struct {
	stores []Store
}

// NewMultiStore combines stores. At least one is required for Recent.
func NewMultiStore(stores ...Store) *MultiStore {
	return &MultiStore{stores: stores}
}

// Save writes rec to all backends, attempting every one even after a failure.
func (m *MultiStore) Save(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Save(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recent reads from the first backend.
func (m *MultiStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if len(m.stores) == 0 {
		return nil, nil
	}
	return m.stores[0].Recent(ctx, limit)
}

// Count reads from the first backend.
func (m *MultiStore) Count(ctx context.Context) (int, error) {
	if len(m.stores) == 0 {
		return 0, nil
	}
	return m.stores[0].Count(ctx)
}

// Clear empties every backend and reports the first backend's count.
func (m *MultiStore) Clear(ctx context.Context) (int, error) {
	var (
		errs  []error
		first int
	)
	for i, s := range m.stores {
		n, err := s.Clear(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		if i == 0 {
			first = n
		}
	}
	return first, errors.Join(errs...)
}

// Close closes every backend.
func (m *MultiStore) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
