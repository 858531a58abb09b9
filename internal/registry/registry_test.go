package registry

import (
	"context"
	"testing"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/cuongbtq/marketops-be/internal/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopHandler struct{}

func (nopHandler) Execute(ctx context.Context, job *domain.Job) domain.Outcome {
	return domain.Success(nil)
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := New()
	key := Key{Marketplace: "etsy", ActionCode: "publish_listing"}
	r.Register(key, func(deps *handler.Deps) handler.Handler { return nopHandler{} })

	h, err := r.Resolve(key, &handler.Deps{})

	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestRegistry_ResolveUnknownAction(t *testing.T) {
	r := New()

	h, err := r.Resolve(Key{Marketplace: "etsy", ActionCode: "no_such_action"}, &handler.Deps{})

	require.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.Nil(t, h)
	assert.Contains(t, err.Error(), "etsy/no_such_action")
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	r := New()
	key := Key{Marketplace: "etsy", ActionCode: "publish_listing"}
	factory := func(deps *handler.Deps) handler.Handler { return nopHandler{} }

	r.Register(key, factory)

	assert.Panics(t, func() { r.Register(key, factory) })
}

func TestDefault(t *testing.T) {
	r := Default()

	wantKeys := []Key{
		{"etsy", "publish_listing"},
		{"etsy", "delist_listing"},
		{"mercari", "publish_listing"},
		{"mercari", "delist_listing"},
		{"ebay", "update_price"},
		{"ebay", "sync_inventory"},
	}
	assert.ElementsMatch(t, wantKeys, r.Keys())

	for _, key := range wantKeys {
		h, err := r.Resolve(key, &handler.Deps{})
		require.NoError(t, err, "key %s", key)
		assert.NotNil(t, h)
	}
}
