package fake

import (
	"context"
	"errors"
	"testing"

	"github.com/chriscow/eco-go/pkg/ai/llm"
	"github.com/matryer/is"
)

func TestFakeLLM_CyclesResponses(t *testing.T) {
	is := is.New(t)
	f := NewFakeLLM("one", "two")
	req := llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}}

	for _, want := range []string{"one", "two", "one"} {
		resp, err := f.Chat(context.Background(), req)
		is.NoErr(err)
		is.Equal(resp.Message.Role, llm.RoleAssistant)
		is.Equal(resp.Message.Content, want)
		is.True(resp.TokensUsed > 0)
	}
	is.Equal(len(f.Requests()), 3)
}

func TestFakeLLM_Error(t *testing.T) {
	is := is.New(t)
	f := NewFakeLLM()
	f.Err = errors.New("rate limited")

	_, err := f.Chat(context.Background(), llm.ChatRequest{})
	is.Equal(err, f.Err)
	is.Equal(len(f.Requests()), 1) // failed calls are still recorded
}

func TestFakeLLM_CancelledContext(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFakeLLM().Chat(ctx, llm.ChatRequest{})
	is.True(errors.Is(err, context.Canceled))
}
