package telegram

import (
	"context"
	"sync"
)

// KeyLock is a set of mutexes keyed by string whose Lock honours context
// cancellation. Keys are never removed; there is one per chat.
type KeyLock struct {
	sems sync.Map // string -> chan struct{}
}

// Lock blocks until key is free or ctx ends. The returned func releases it.
func (k *KeyLock) Lock(ctx context.Context, key string) (func(), error) {
	v, _ := k.sems.LoadOrStore(key, make(chan struct{}, 1))
	sem := v.(chan struct{})
	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
