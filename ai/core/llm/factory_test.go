package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(Options{Provider: "openai", APIKey: "sk-x"})
	require.Error(t, err) // model required

	_, err = NewService(Options{Provider: "openai", Model: "gpt-4o"})
	require.Error(t, err) // key required

	_, err = NewService(Options{Provider: "nonsense", Model: "m", APIKey: "k"})
	require.Error(t, err) // unknown provider without base URL

	svc, err := NewService(Options{Provider: "nonsense", Model: "m", APIKey: "k", BaseURL: "http://localhost:9999/v1"})
	require.NoError(t, err)
	require.NotNil(t, svc)

	// Local ollama needs no key.
	svc, err = NewService(Options{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestFactoryOverrides(t *testing.T) {
	f := NewFactory(Options{Provider: "openai", Model: "gpt-4o", APIKey: "sk-x"})

	svc, err := f.Default()
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", svc.(*service).model)

	temp := float32(0.1)
	svc, err = f.For(Override{Model: "gpt-4o-mini", Temperature: &temp})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", svc.(*service).model)
	require.Equal(t, temp, svc.(*service).temperature)

	// Unknown provider override falls back to the defaults.
	svc, err = f.For(Override{Provider: "made-up"})
	require.NoError(t, err)
	require.Equal(t, "openai", svc.(*service).provider)
}

func TestFactoryProviderOverrideWithoutCredential(t *testing.T) {
	f := NewFactory(Options{Provider: "openai", Model: "gpt-4o", APIKey: "sk-x"})

	// A different provider must not inherit the default provider's key;
	// with no credential of its own the override fails at init and the
	// default provider serves the request.
	svc, err := f.For(Override{Provider: "deepseek", Model: "deepseek-chat"})
	require.NoError(t, err)
	require.Equal(t, "openai", svc.(*service).provider)
	require.Equal(t, "gpt-4o", svc.(*service).model)

	// Local ollama needs no credential, so that override holds.
	svc, err = f.For(Override{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	require.Equal(t, "ollama", svc.(*service).provider)
	require.Equal(t, "llama3.1", svc.(*service).model)
}

func TestConvertMessagesRoles(t *testing.T) {
	out := convertMessages([]Message{
		SystemMessage("sys"),
		UserMessage("hi"),
		AssistantMessage("hello"),
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "c1", Name: "calculator", Arguments: "{}"}}},
		ToolResultMessage("c1", "Result: 4"),
	})
	require.Len(t, out, 5)
	require.Equal(t, "system", out[0].Role)
	require.Equal(t, "user", out[1].Role)
	require.Equal(t, "assistant", out[2].Role)
	require.Len(t, out[3].ToolCalls, 1)
	require.Equal(t, "c1", out[3].ToolCalls[0].ID)
	require.Equal(t, "tool", out[4].Role)
	require.Equal(t, "c1", out[4].ToolCallID)
}
