package ai

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/selivandex/news-pulse/pkg/templates"
)

type fakeProvider struct {
	mu       sync.Mutex
	response string
	err      error
	requests []*GenerateRequest
	disabled bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsEnabled() bool { return !f.disabled }

func (f *fakeProvider) Generate(_ context.Context, req *GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newRenderer(t *testing.T) templates.Renderer {
	t.Helper()
	m, err := templates.NewManager()
	require.NoError(t, err)
	return m
}
