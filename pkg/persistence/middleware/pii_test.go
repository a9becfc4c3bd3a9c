package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw := middleware.NewPIIMiddleware([]string{middleware.PatternEmail, middleware.PatternSSN})
	secure := mw(underlying)

	ctx := context.Background()
	require.NoError(t, secure.Create(ctx, "pii-session"))

	msg := domain.Message{
		Role:    domain.RoleUser,
		Content: "mail jdoe@example.com, ssn 999-99-9999",
		Responses: []domain.Message{{
			Role:    domain.RoleAssistant,
			Content: "noted jdoe@example.com",
		}},
	}
	require.NoError(t, secure.Append(ctx, "pii-session", "AgentB", msg))

	assert.Equal(t, "mail jdoe@example.com, ssn 999-99-9999", msg.Content, "in-memory message is not modified")

	stored, err := underlying.Load(ctx, "pii-session", "AgentB")
	require.NoError(t, err)
	assert.Equal(t, "mail ***, ssn ***", stored[0].Content)
	assert.Equal(t, "noted ***", stored[0].Responses[0].Content, "nested responses are masked")
}

func TestChain_Order(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()

	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{middleware.PatternEmail}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)
	require.NoError(t, store.Create(ctx, "s1"))
	require.NoError(t, store.Append(ctx, "s1", "A", domain.Message{Content: "hi a@b.io"}))

	loaded, err := store.Load(ctx, "s1", "A")
	require.NoError(t, err)
	assert.Equal(t, "hi ***", loaded[0].Content, "masking happens before encryption")
}
