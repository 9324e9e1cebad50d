package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentfs/agentfs/internal/pkg/fserrors"
	"github.com/agentfs/agentfs/pkg/database"
)

// KVStoreService is a namespaced key-value store over the data store's flat
// namespace. Keys are prefixed with "kv:<namespace>:" so that agents sharing
// one store never see each other's state.
type KVStoreService interface {
	Set(ctx context.Context, key string, value []byte) error
	// Get returns the stored value; the boolean reports presence, so an
	// empty stored value is distinguishable from a missing key.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Scan returns the namespace-relative keys beginning with prefix, sorted.
	Scan(ctx context.Context, prefix string) ([]string, error)
}

type kvStoreService struct {
	db        database.Store
	namespace string
}

func NewKVStoreService(db database.Store, namespace string) KVStoreService {
	return &kvStoreService{db: db, namespace: namespace}
}

func (s *kvStoreService) namespacedKey(key string) string {
	return "kv:" + s.namespace + ":" + key
}

func (s *kvStoreService) stripNamespace(key string) string {
	return strings.TrimPrefix(key, "kv:"+s.namespace+":")
}

func (s *kvStoreService) Set(ctx context.Context, key string, value []byte) error {
	const op = "service.kvStoreService.Set"

	if err := s.db.Put(ctx, s.namespacedKey(key), value); err != nil {
		return fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}
	return nil
}

func (s *kvStoreService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "service.kvStoreService.Get"

	value, ok, err := s.db.Get(ctx, s.namespacedKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}
	return value, ok, nil
}

func (s *kvStoreService) Delete(ctx context.Context, key string) error {
	const op = "service.kvStoreService.Delete"

	if err := s.db.Delete(ctx, s.namespacedKey(key)); err != nil {
		return fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}
	return nil
}

func (s *kvStoreService) Exists(ctx context.Context, key string) (bool, error) {
	const op = "service.kvStoreService.Exists"

	ok, err := s.db.Exists(ctx, s.namespacedKey(key))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}
	return ok, nil
}

func (s *kvStoreService) Scan(ctx context.Context, prefix string) ([]string, error) {
	const op = "service.kvStoreService.Scan"

	keys, err := s.db.Scan(ctx, s.namespacedKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, fserrors.Database(err))
	}

	stripped := make([]string, 0, len(keys))
	for _, key := range keys {
		stripped = append(stripped, s.stripNamespace(key))
	}
	return stripped, nil
}
