package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/persistence/middleware"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func turn(content string) domain.Message {
	return domain.Message{
		Role:    domain.RoleUser,
		Content: content,
		Responses: []domain.Message{{
			Role:      domain.RoleAssistant,
			ToolCalls: []domain.ToolCall{{ID: "c1", Name: "lookup", Arguments: `{"q":"` + content + `"}`}},
		}},
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secure := mw(underlying)

	ctx := context.Background()
	require.NoError(t, secure.Create(ctx, "s1"))

	original := turn("my-secret-sauce")
	require.NoError(t, secure.Append(ctx, "s1", "AgentB", original))
	assert.Equal(t, "my-secret-sauce", original.Content, "caller's message is not modified")

	stored, err := underlying.Load(ctx, "s1", "AgentB")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, strings.HasPrefix(stored[0].Content, "enc:v1:"))
	assert.NotContains(t, stored[0].Content, "secret")
	assert.NotContains(t, stored[0].Responses[0].ToolCalls[0].Arguments, "secret")
	assert.Equal(t, domain.RoleUser, stored[0].Role, "metadata stays readable")
	assert.Empty(t, stored[0].Responses[0].Content, "empty fields stay empty")

	loaded, err := secure.Load(ctx, "s1", "AgentB")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded[0].Content)
	assert.Equal(t, `{"q":"my-secret-sauce"}`, loaded[0].Responses[0].ToolCalls[0].Arguments)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()
	require.NoError(t, underlying.Create(ctx, "s1"))

	secureOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, secureOld.Append(ctx, "s1", "old", turn("encrypted-with-old-key")))

	secureNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := secureNew.Load(ctx, "s1", "old")
	require.NoError(t, err, "fallback key decrypts old data")
	assert.Equal(t, "encrypted-with-old-key", loaded[0].Content)

	require.NoError(t, secureNew.Append(ctx, "s1", "new", turn("encrypted-with-new-key")))

	_, err = secureOld.Load(ctx, "s1", "new")
	assert.Error(t, err, "old key alone cannot read new data")
}

func TestEncryptionMiddleware_RejectsPlainText(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Create(ctx, "s1"))
	require.NoError(t, underlying.Append(ctx, "s1", "A", domain.Message{Content: "plain"}))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(ctx, "s1", "A")
	assert.ErrorContains(t, err, "missing encrypted data envelope")
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}
