package handshake

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go/jetstream"
)

var (
	errKeyExists = errors.New("key exists")
	errNotFound  = errors.New("key not found")
	errConflict  = errors.New("revision conflict")
)

// kvBucket is the part of a key-value bucket the store relies on. Deleting by
// revision is what makes Take single-use.
type kvBucket interface {
	Create(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) (value []byte, revision uint64, err error)
	DeleteRevision(ctx context.Context, key string, revision uint64) error
}

// jsBucket adapts a JetStream key-value bucket.
type jsBucket struct {
	kv jetstream.KeyValue
}

func (b jsBucket) Create(ctx context.Context, key string, value []byte) error {
	if _, err := b.kv.Create(ctx, key, value); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return errKeyExists
		}
		return err
	}
	return nil
}

func (b jsBucket) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, errNotFound
		}
		return nil, 0, err
	}
	return entry.Value(), entry.Revision(), nil
}

func (b jsBucket) DeleteRevision(ctx context.Context, key string, revision uint64) error {
	err := b.kv.Delete(ctx, key, jetstream.LastRevision(revision))
	if err == nil {
		return nil
	}
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
		return errConflict
	}
	return err
}
