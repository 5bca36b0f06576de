package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	key := generateKey(t)

	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(backend)

	draft := domain.Snapshot{"email": "ada@example.com", "nights": float64(3)}
	require.NoError(t, store.Save(ctx, "s1", draft))

	// The backend must only see the opaque envelope.
	stored, err := backend.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotContains(t, stored, "email")
	assert.Contains(t, stored, "__encrypted__")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, draft, loaded)
}

func TestEncryptionKeyRotation(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(backend)
	require.NoError(t, oldStore.Save(ctx, "s1", domain.Snapshot{"zip": "12345"}))

	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(backend)

	loaded, err := rotated.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "12345", loaded["zip"])
}

func TestEncryptionRejectsPlainDrafts(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	require.NoError(t, backend.Save(ctx, "s1", domain.Snapshot{"email": "plain"}))

	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(backend)
	_, err := store.Load(ctx, "s1")
	require.Error(t, err)
}

func TestPIIMaskingOnSave(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()

	store := middleware.NewPIIMiddleware([]string{"(?i)ssn", "card_"})(backend)

	draft := domain.Snapshot{
		"name":        "Ada",
		"SSN":         "123-45-6789",
		"card_number": "4111111111111111",
	}
	require.NoError(t, store.Save(ctx, "s1", draft))

	stored, err := backend.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored["name"])
	assert.Equal(t, "***", stored["SSN"])
	assert.Equal(t, "***", stored["card_number"])

	// Caller's snapshot is untouched.
	assert.Equal(t, "123-45-6789", draft["SSN"])
}

func TestChainOrdering(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	key := generateKey(t)

	// PII first, then encryption: the envelope holds masked values.
	store := middleware.Chain(backend,
		middleware.NewPIIMiddleware([]string{"ssn"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	require.NoError(t, store.Save(ctx, "s1", domain.Snapshot{"ssn": "123", "name": "Ada"}))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "***", loaded["ssn"])
	assert.Equal(t, "Ada", loaded["name"])
}
