package tokencount_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/essay-tutor/internal/adapter/ai/tokencount"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	n, err := c.CountTokens("Hello, world!", "openai/gpt-4o-mini")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.Less(t, n, 10)
}

func TestCountChatTokens_IncludesOverhead(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	chat, err := c.CountChatTokens("system prompt", "user prompt", "gpt-4")
	require.NoError(t, err)
	sys, err := c.CountTokens("system prompt", "gpt-4")
	require.NoError(t, err)
	usr, err := c.CountTokens("user prompt", "gpt-4")
	require.NoError(t, err)
	assert.Greater(t, chat, sys+usr)
}

func TestCountTokens_ProviderPrefixedModel(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()
	a, err := c.CountTokens("some essay text", "meta-llama/llama-3.1-8b-instruct:free")
	require.NoError(t, err)
	b, err := c.CountTokens("some essay text", "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 25, tokencount.EstimateTokens(string(make([]byte, 100))))
}
