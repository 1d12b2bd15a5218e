package unifiedllm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelInfo(t *testing.T) {
	info := GetModelInfo(DefaultModel)
	require.NotNil(t, info)
	assert.Equal(t, "anthropic", info.Provider)
	assert.True(t, info.SupportsTools)

	byAlias := GetModelInfo("sonnet")
	require.NotNil(t, byAlias)
	assert.Equal(t, DefaultModel, byAlias.ID)

	assert.Nil(t, GetModelInfo("no-such-model"))
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, DefaultModel, ResolveModel("claude-sonnet-4-5"))
	assert.Equal(t, "custom-model", ResolveModel("custom-model"))
}

func TestProviderForModel(t *testing.T) {
	tests := map[string]string{
		"claude-3-haiku-20240307": "anthropic",
		"gpt-4o":                  "openai",
		"gpt-3.5-turbo":           "openai",
		"o3-mini":                 "openai",
		"llama3":                  "",
	}
	for model, want := range tests {
		assert.Equal(t, want, ProviderForModel(model), model)
	}
}

func TestListModels(t *testing.T) {
	all := ListModels("")
	assert.Len(t, all, len(Models))

	for _, m := range ListModels("openai") {
		assert.Equal(t, "openai", m.Provider)
	}
}
