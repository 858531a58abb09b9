package registry

import (
	"fmt"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/cuongbtq/marketops-be/internal/handler"
)

// Key addresses one registered action: exact marketplace + action code.
type Key struct {
	Marketplace string
	ActionCode  string
}

func (k Key) String() string {
	return k.Marketplace + "/" + k.ActionCode
}

// Factory builds a handler bound to the dispatcher's shared dependencies.
type Factory func(deps *handler.Deps) handler.Handler

// Registry is the static map from (marketplace, action code) to a handler
// constructor. It is populated once at startup and never mutated afterwards;
// a lookup miss fails with domain.ErrUnknownAction.
type Registry struct {
	factories map[Key]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[Key]Factory)}
}

// Register binds a factory to a key. Registering the same key twice is a
// wiring bug and panics at startup rather than silently shadowing.
func (r *Registry) Register(key Key, factory Factory) {
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("duplicate handler registration for %s", key))
	}
	r.factories[key] = factory
}

// Resolve returns a handler for the key, or domain.ErrUnknownAction.
func (r *Registry) Resolve(key Key, deps *handler.Deps) (handler.Handler, error) {
	factory, ok := r.factories[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAction, key)
	}
	return factory(deps), nil
}

// Keys returns every registered key, for startup logging.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.factories))
	for key := range r.factories {
		keys = append(keys, key)
	}
	return keys
}

// Default builds the production registry with every marketplace action the
// dispatcher supports.
func Default() *Registry {
	r := New()

	r.Register(Key{"etsy", "publish_listing"}, func(deps *handler.Deps) handler.Handler {
		return handler.NewPublishListing(deps)
	})
	r.Register(Key{"etsy", "delist_listing"}, func(deps *handler.Deps) handler.Handler {
		return handler.NewDelistListing(deps)
	})
	r.Register(Key{"mercari", "publish_listing"}, func(deps *handler.Deps) handler.Handler {
		return handler.NewPublishListing(deps)
	})
	r.Register(Key{"mercari", "delist_listing"}, func(deps *handler.Deps) handler.Handler {
		return handler.NewDelistListing(deps)
	})
	r.Register(Key{"ebay", "update_price"}, func(deps *handler.Deps) handler.Handler {
		return handler.NewUpdatePrice(deps)
	})
	r.Register(Key{"ebay", "sync_inventory"}, func(deps *handler.Deps) handler.Handler {
		return handler.NewSyncInventory(deps)
	})

	return r
}
