package exchange

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/subtrackr/currency"
)

var (
	ErrProviderNotInitialized = errors.New("provider is not initialized")
	ErrNoActiveProvider       = errors.New("no active provider selected")
)

// Registry holds every configured provider and tracks which one is active.
// It is a plain constructed instance owned by the facade, so tests get a
// fresh registry instead of sharing process-wide state.
type Registry struct {
	mu        sync.RWMutex
	providers map[currency.Provider]currency.RateProvider
	order     []currency.Provider
	active    currency.Provider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[currency.Provider]currency.RateProvider),
	}
}

// Register adds or replaces the provider for its identity. The first
// registered provider becomes active.
func (r *Registry) Register(provider currency.RateProvider) {
	identity := provider.Identity()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[identity]; !exists {
		r.order = append(r.order, identity)
	}

	r.providers[identity] = provider

	if r.active == currency.EmptyProvider {
		r.active = identity
	}
}

func (r *Registry) SetActive(identity currency.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[identity]; !ok {
		return ErrProviderNotInitialized
	}

	r.active = identity

	return nil
}

func (r *Registry) Active() (currency.RateProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == currency.EmptyProvider {
		return nil, ErrNoActiveProvider
	}

	return r.providers[r.active], nil
}

func (r *Registry) ActiveIdentity() currency.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.active
}

func (r *Registry) Provider(identity currency.Provider) (currency.RateProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[identity]

	return provider, ok
}

func (r *Registry) Has(identity currency.Provider) bool {
	_, ok := r.Provider(identity)

	return ok
}

// Providers returns the registered identities in insertion order.
func (r *Registry) Providers() []currency.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order := make([]currency.Provider, len(r.order))
	copy(order, r.order)

	return order
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// AutoSelect probes providers in insertion order and activates the first
// one whose connection test passes. It reports whether any did; on total
// failure the active provider is left untouched.
func (r *Registry) AutoSelect(ctx context.Context) bool {
	for _, identity := range r.Providers() {
		provider, ok := r.Provider(identity)

		if !ok {
			continue
		}

		if provider.TestConnection(ctx) {
			_ = r.SetActive(identity)

			return true
		}
	}

	return false
}

// ProbeAll runs every provider's connection test concurrently and returns
// the health of each. Used for status views; it never changes the active
// provider.
func (r *Registry) ProbeAll(ctx context.Context) map[currency.Provider]bool {
	var mu sync.Mutex

	results := make(map[currency.Provider]bool, r.Len())
	group, ctx := errgroup.WithContext(ctx)

	for _, identity := range r.Providers() {
		identity := identity
		provider, ok := r.Provider(identity)

		if !ok {
			continue
		}

		group.Go(func() error {
			healthy := provider.TestConnection(ctx)

			mu.Lock()
			results[identity] = healthy
			mu.Unlock()

			return nil
		})
	}

	_ = group.Wait()

	return results
}
