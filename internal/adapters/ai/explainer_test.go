package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/news-pulse/pkg/models"
)

func newTestExplainer(t *testing.T, p Provider) *Explainer {
	t.Helper()
	e, err := NewExplainer(p, newRenderer(t), ExplainerConfig{Temperature: 0.4})
	require.NoError(t, err)
	return e
}

func TestExplainSuccess(t *testing.T) {
	p := &fakeProvider{response: `{"bullets":["Rates stay high"," ","Banks benefit"],"shortTermImpact":" Volatility ","longTermImpact":"Slower growth"}`}
	e := newTestExplainer(t, p)

	article := &models.Article{ID: "1", Title: "Fed holds", Source: "Reuters"}
	got, err := e.Explain(context.Background(), article, "The Fed kept rates unchanged")
	require.NoError(t, err)

	assert.Equal(t, []string{"Rates stay high", "Banks benefit"}, got.Bullets)
	assert.Equal(t, "Volatility", got.ShortTermImpact)
	assert.Equal(t, "Slower growth", got.LongTermImpact)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, OperationExplain, req.Operation)
	assert.InDelta(t, 0.4, req.Temperature, 1e-6)
	assert.True(t, req.JSON)
	assert.Contains(t, req.SystemInstruction, "senior financial advisor")
	assert.Contains(t, req.UserText, "Fed holds")
	assert.Contains(t, req.UserText, "The Fed kept rates unchanged")
}

func TestExplainFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"provider error", &fakeProvider{err: errors.New("503")}},
		{"not json", &fakeProvider{response: "sorry"}},
		{"no bullets", &fakeProvider{response: `{"bullets":[],"shortTermImpact":"a","longTermImpact":"b"}`}},
		{"blank impact", &fakeProvider{response: `{"bullets":["x"],"shortTermImpact":"  ","longTermImpact":"b"}`}},
		{"disabled", &fakeProvider{disabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExplainer(t, tt.provider)
			got, err := e.Explain(context.Background(), &models.Article{ID: "1"}, "text")
			assert.Error(t, err)
			assert.Nil(t, got)
		})
	}
}
