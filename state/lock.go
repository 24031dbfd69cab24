package state

import (
	"context"
	"fmt"
	"path"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

// Locker serializes writers to a project's state file. The state file is
// rewritten wholesale on every mutation, so concurrent writers to the same
// project must be fenced; readers need no lock.
type Locker interface {
	// Lock acquires an advisory lock for the given key and returns a release
	// function. The release function must be called exactly once.
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}

// NopLocker is a Locker for single-process deployments, where the store's
// own mutex is enough.
type NopLocker struct{}

// Lock implements Locker.
func (NopLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// EtcdLocker fences state writers across processes with an etcd mutex.
// Each Lock call opens a leased session so a crashed holder releases the
// lock when its lease expires.
type EtcdLocker struct {
	client     *clientv3.Client
	namespace  string
	ttlSeconds int
}

// NewEtcdLocker creates a distributed locker. Lock keys are placed under
// "/<namespace>/state/".
func NewEtcdLocker(client *clientv3.Client, namespace string, ttlSeconds int) *EtcdLocker {
	if ttlSeconds <= 0 {
		ttlSeconds = 30
	}
	return &EtcdLocker{client: client, namespace: namespace, ttlSeconds: ttlSeconds}
}

// Lock implements Locker.
func (l *EtcdLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	session, err := concurrency.NewSession(l.client,
		concurrency.WithTTL(l.ttlSeconds),
		concurrency.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("opening lock session: %w", err)
	}

	mutex := concurrency.NewMutex(session, path.Join("/", l.namespace, "state", key))
	if err := mutex.Lock(ctx); err != nil {
		session.Close()
		return nil, fmt.Errorf("acquiring state lock for %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		defer session.Close()
		if err := mutex.Unlock(ctx); err != nil {
			return fmt.Errorf("releasing state lock for %s: %w", key, err)
		}
		return nil
	}, nil
}
