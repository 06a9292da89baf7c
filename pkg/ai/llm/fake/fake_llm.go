package fake

import (
	"context"
	"strings"
	"sync"

	"github.com/chriscow/eco-go/pkg/ai/llm"
)

// FakeLLM is a fake LLM implementation for testing. Responses cycle.
type FakeLLM struct {
	// Err, when set, is returned from every Chat call.
	Err error

	mu        sync.Mutex
	responses []string
	requests  []llm.ChatRequest
}

// NewFakeLLM creates a new fake LLM provider with predefined responses.
func NewFakeLLM(responses ...string) *FakeLLM {
	if len(responses) == 0 {
		responses = []string{"Rinse it and put it in the recycling bin."}
	}
	return &FakeLLM{responses: responses}
}

// Chat records the request and returns the next canned response.
func (f *FakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.Err != nil {
		return llm.ChatResponse{}, f.Err
	}
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}

	response := f.responses[(len(f.requests)-1)%len(f.responses)]
	return llm.ChatResponse{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: response},
		TokensUsed:   len(strings.Fields(response)) + 10,
		FinishReason: "stop",
	}, nil
}

// Requests returns the requests seen so far.
func (f *FakeLLM) Requests() []llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.ChatRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Capabilities returns the fake LLM capabilities.
func (f *FakeLLM) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		MaxTokens:          4096,
		SupportedModels:    []string{"fake-model"},
		SupportsSystemRole: true,
	}
}
