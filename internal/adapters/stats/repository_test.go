package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/news-pulse/pkg/models"
	"github.com/selivandex/news-pulse/test/testdb"
)

func TestIncrementTopicIsAdditive(t *testing.T) {
	tdb := testdb.Setup(t)
	repo := NewRepository(tdb.SQL())
	ctx := context.Background()

	for _, amount := range []int64{2, 3} {
		tx, err := tdb.SQL().BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, repo.IncrementTopicTx(ctx, tx, models.TopicIncrement{Key: "fed", Topic: "Fed", Amount: amount}))
		require.NoError(t, tx.Commit())
	}

	topic, err := repo.GetTopic(ctx, "fed")
	require.NoError(t, err)
	assert.Equal(t, int64(5), topic.Frequency)
	assert.Equal(t, "Fed", topic.Topic)
	assert.False(t, topic.LastUpdated.IsZero())

	_, err = repo.GetTopic(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementTopicRejectsNonPositive(t *testing.T) {
	tdb := testdb.Setup(t)
	repo := NewRepository(tdb.SQL())
	ctx := context.Background()

	tx, err := tdb.SQL().BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.Error(t, repo.IncrementTopicTx(ctx, tx, models.TopicIncrement{Key: "fed", Topic: "Fed", Amount: 0}))
}

func TestMarketPulseOverwrite(t *testing.T) {
	tdb := testdb.Setup(t)
	repo := NewRepository(tdb.SQL())
	ctx := context.Background()

	_, err := repo.GetMarketPulse(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	for _, pulse := range []models.MarketPulse{
		{Score: 1.2, Label: models.PulseBullish, BasedOnCount: 3},
		{Score: 0.402359, Label: models.PulseNeutral, BasedOnCount: 4},
	} {
		tx, err := tdb.SQL().BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, repo.SetMarketPulseTx(ctx, tx, pulse))
		require.NoError(t, tx.Commit())
	}

	pulse, err := repo.GetMarketPulse(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.402359, pulse.Score, 1e-9)
	assert.Equal(t, models.PulseNeutral, pulse.Label)
	assert.Equal(t, 4, pulse.BasedOnCount)
	assert.Equal(t, 1, tdb.Count(t, "market_pulse", ""))
}

func TestTopTopicsExcludes(t *testing.T) {
	tdb := testdb.Setup(t)
	repo := NewRepository(tdb.SQL())
	ctx := context.Background()

	tx, err := tdb.SQL().BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.IncrementTopicTx(ctx, tx, models.TopicIncrement{Key: "ipo-heat", Topic: "IPO Heat", Amount: 9}))
	require.NoError(t, repo.IncrementTopicTx(ctx, tx, models.TopicIncrement{Key: "fed", Topic: "Fed", Amount: 4}))
	require.NoError(t, repo.IncrementTopicTx(ctx, tx, models.TopicIncrement{Key: "oil", Topic: "Oil", Amount: 1}))
	require.NoError(t, tx.Commit())

	top, err := repo.TopTopics(ctx, 10, "ipo-heat")
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "fed", top[0].Key)
	assert.Equal(t, "oil", top[1].Key)

	all, err := repo.TopTopics(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ipo-heat", all[0].Key)
}
