package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewRedactMiddleware([]string{"password", "^ssn"})
	require.NoError(t, err)
	store := mw(underlying)

	ctx := context.Background()
	state := domain.NewState("pii", "bot")
	state.Context["username"] = "jdoe"
	state.Context["user_password"] = "secret123"
	state.Context["lookup"] = map[string]any{"address": "123 St", "ssn_number": "999-99-9999"}

	require.NoError(t, store.Save(ctx, "pii", state))
	assert.Equal(t, "secret123", state.Context["user_password"], "the live state is untouched")

	stored, err := store.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Context["username"])
	assert.Equal(t, middleware.Mask, stored.Context["user_password"])
	nested := stored.Context["lookup"].(map[string]any)
	assert.Equal(t, middleware.Mask, nested["ssn_number"])
	assert.Equal(t, "123 St", nested["address"])
}

func TestRedactMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewRedactMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	key := generateKey(t)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)
	red, err := middleware.NewRedactMiddleware([]string{"card"})
	require.NoError(t, err)

	underlying := memory.NewStore()
	store := middleware.Chain(underlying, red, enc)

	ctx := context.Background()
	state := domain.NewState("c1", "bot")
	state.Context["card"] = "4111"
	require.NoError(t, store.Save(ctx, "c1", state))

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Context["card"], "redaction runs before encryption")

	raw, err := underlying.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Contains(t, raw.Context, middleware.EnvelopeKey)
}
