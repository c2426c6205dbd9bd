package quest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trenches/internal/domain"
	"trenches/internal/infra/storage"
)

var t0 = time.Unix(1_700_000_000, 0)

func ids(qs []domain.Quest) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func position(id string, avg float64) domain.Position {
	return domain.Position{TokenID: id, AvgBuyPrice: decimal.NewFromFloat(avg)}
}

func TestNewTracker(t *testing.T) {
	tr := NewTracker()
	qs := tr.Quests()
	require.Len(t, qs, 10)
	assert.Equal(t, FirstBlood, qs[0].ID)
	assert.Equal(t, LuckyTrader, qs[9].ID)
	for _, q := range qs {
		assert.False(t, q.Completed)
		assert.Positive(t, q.Target)
	}
	assert.Empty(t, tr.Check())
}

func TestFirstBlood(t *testing.T) {
	tr := NewTracker()
	tr.TrackBuy(t0)

	done := tr.Check()
	assert.Equal(t, []string{FirstBlood}, ids(done))
	assert.Empty(t, tr.Check(), "completion is reported once")
	assert.Equal(t, 1, tr.CompletedCount())
}

func TestStreaks(t *testing.T) {
	tr := NewTracker()

	tr.TrackSell(-10, 1, t0)
	tr.TrackSell(-20, 1, t0)
	tr.TrackSell(5, 1, t0)
	assert.Equal(t, 0, tr.Stats().ConsecutiveLosses, "a win resets the loss streak")

	for i := 0; i < 3; i++ {
		tr.TrackSell(-1, 0.1, t0)
	}
	done := ids(tr.Check())
	assert.Contains(t, done, PaperHands)
	assert.NotContains(t, done, LuckyTrader)

	for i := 0; i < 5; i++ {
		tr.TrackSell(50, 0.1, t0)
	}
	assert.Contains(t, ids(tr.Check()), LuckyTrader)

	// Break-even sells leave both streaks alone.
	tr.TrackSell(0, 0, t0)
	assert.Equal(t, 5, tr.Stats().ConsecutiveWins)
}

func TestSpeedRunnerWindow(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 19; i++ {
		tr.TrackBuy(t0.Add(time.Duration(i) * time.Second))
	}
	// Past the window every earlier trade is forgotten.
	tr.TrackBuy(t0.Add(6 * time.Minute))
	assert.Len(t, tr.Stats().RecentTradesMs, 1)
	assert.NotContains(t, ids(tr.Check()), SpeedRunner)

	for i := 0; i < 19; i++ {
		tr.TrackBuy(t0.Add(6*time.Minute + time.Duration(i)*time.Second))
	}
	assert.Contains(t, ids(tr.Check()), SpeedRunner)
}

func TestWhaleAlert(t *testing.T) {
	tr := NewTracker()
	tr.TrackSell(0, 499, t0)
	assert.NotContains(t, ids(tr.Check()), WhaleAlert)

	quests := tr.Quests()
	for _, q := range quests {
		if q.ID == WhaleAlert {
			assert.InDelta(t, 0.998, q.Progress, 1e-9)
		}
	}

	tr.TrackSell(0, 1, t0)
	assert.Contains(t, ids(tr.Check()), WhaleAlert)
}

func TestObserve(t *testing.T) {
	tr := NewTracker()
	positions := []domain.Position{
		position("a", 1.0), // down 60%
		position("b", 1.0), // down 10%
		position("c", 1.0), // down 5%
		position("d", 0.1), // 12x
		position("e", 1.0), // no price
	}
	prices := map[string]float64{"a": 0.4, "b": 0.9, "c": 0.95, "d": 1.2}

	tr.Observe(positions, prices)
	s := tr.Stats()
	assert.Equal(t, 5, s.MaxTokensHeld)
	assert.Equal(t, 3, s.MaxTokensAtLoss)
	assert.True(t, s.HeldWhileDown50)
	assert.InDelta(t, 12, s.MaxProfitMultiple, 1e-9)

	done := ids(tr.Check())
	assert.ElementsMatch(t, []string{DiamondHands, ToTheMoon, BagHolder, PortfolioDiversifier}, done)

	// Maxima never go down.
	tr.Observe(positions[:1], map[string]float64{"a": 1.5})
	s = tr.Stats()
	assert.Equal(t, 5, s.MaxTokensHeld)
	assert.Equal(t, 3, s.MaxTokensAtLoss)
	assert.InDelta(t, 12, s.MaxProfitMultiple, 1e-9)
}

func TestObserve_Empty(t *testing.T) {
	tr := NewTracker()
	tr.Observe(nil, map[string]float64{"a": 1})
	assert.Zero(t, tr.Stats().MaxTokensHeld)
}

func TestCompletedNeverRegress(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 3; i++ {
		tr.TrackSell(-1, 0, t0)
	}
	require.Contains(t, ids(tr.Check()), PaperHands)

	tr.TrackSell(10, 0, t0)
	tr.Check()
	for _, q := range tr.Quests() {
		if q.ID == PaperHands {
			assert.True(t, q.Completed)
			assert.Equal(t, 1.0, q.Progress)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	tr := NewTracker()
	tr.TrackBuy(t0)
	tr.TrackSell(20, 3, t0)
	tr.Check()
	require.NoError(t, tr.Save(ctx, store))

	restored := NewTracker()
	require.NoError(t, restored.Load(ctx, store))
	assert.Equal(t, tr.Stats(), restored.Stats())
	assert.Equal(t, tr.Quests(), restored.Quests())
	assert.Equal(t, 1, restored.CompletedCount())
}

func TestLoad_BadStateKeepsFresh(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.SaveState(ctx, domain.QuestStateKey, []byte(`{"quests":[]}`)))

	tr := NewTracker()
	require.NoError(t, tr.Load(ctx, store))
	assert.Len(t, tr.Quests(), 10)

	require.NoError(t, store.SaveState(ctx, domain.QuestStateKey, []byte(`garbage`)))
	require.NoError(t, tr.Load(ctx, store))
	assert.Zero(t, tr.CompletedCount())
}
