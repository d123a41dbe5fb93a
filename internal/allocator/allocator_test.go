package allocator

import (
	"math"
	"math/rand/v2"
	"testing"

	"code-lottery-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxRand always returns the top of the range, which lands on the last
// in-stock tier of a weighted draw.
type maxRand struct{}

func (maxRand) IntN(n int) int { return n - 1 }

func defaultInput(stock map[models.Tier]int) Input {
	cfg := models.DefaultLotteryConfig()
	return Input{
		Weights:       cfg.Weights,
		Stock:         stock,
		PityThreshold: cfg.PityThreshold,
		PityTier:      cfg.PityTier,
		Order:         models.DefaultEscalationOrder,
	}
}

func fullStock() map[models.Tier]int {
	return map[models.Tier]int{
		models.TierGold:   1000,
		models.TierPurple: 1000,
		models.TierBlue:   1000,
	}
}

func distribution(t *testing.T, in Input, trials int) map[models.Tier]float64 {
	t.Helper()
	rng := rand.New(rand.NewPCG(42, 1337))
	counts := make(map[models.Tier]int)
	for i := 0; i < trials; i++ {
		d, ok := Pick(in, rng)
		require.True(t, ok)
		counts[d.Tier]++
	}
	out := make(map[models.Tier]float64, len(counts))
	for tier, n := range counts {
		out[tier] = float64(n) / float64(trials) * 100
	}
	return out
}

func Test_Pick_Distribution(t *testing.T) {
	got := distribution(t, defaultInput(fullStock()), 200000)

	assert.InDelta(t, 5.0, got[models.TierGold], 0.5)
	assert.InDelta(t, 20.0, got[models.TierPurple], 0.7)
	assert.InDelta(t, 75.0, got[models.TierBlue], 0.7)
	assert.Zero(t, got[models.TierEvent], "event has no stock")
}

func Test_Pick_DistributionWithoutGold(t *testing.T) {
	stock := fullStock()
	stock[models.TierGold] = 0

	got := distribution(t, defaultInput(stock), 200000)

	assert.Zero(t, got[models.TierGold])
	assert.InDelta(t, 21.05, got[models.TierPurple], 0.7)
	assert.InDelta(t, 78.95, got[models.TierBlue], 0.7)
}

func Test_Pick_NoStock(t *testing.T) {
	_, ok := Pick(defaultInput(map[models.Tier]int{}), maxRand{})
	assert.False(t, ok)
}

func Test_Pick_Pity(t *testing.T) {
	tests := []struct {
		name     string
		stock    map[models.Tier]int
		pityTier models.Tier
		want     models.Tier
		wantOK   bool
	}{
		{
			name:     "forced to pity tier",
			stock:    fullStock(),
			pityTier: models.TierPurple,
			want:     models.TierPurple,
			wantOK:   true,
		},
		{
			name:     "escalates to gold when purple is empty",
			stock:    map[models.Tier]int{models.TierGold: 1, models.TierBlue: 50},
			pityTier: models.TierPurple,
			want:     models.TierGold,
			wantOK:   true,
		},
		{
			name:     "escalates to event when purple and gold are empty",
			stock:    map[models.Tier]int{models.TierEvent: 1, models.TierBlue: 50},
			pityTier: models.TierPurple,
			want:     models.TierEvent,
			wantOK:   true,
		},
		{
			name:     "never falls back to blue",
			stock:    map[models.Tier]int{models.TierBlue: 50},
			pityTier: models.TierPurple,
			wantOK:   false,
		},
		{
			name:     "gold pity skips purple",
			stock:    map[models.Tier]int{models.TierPurple: 5, models.TierEvent: 5},
			pityTier: models.TierGold,
			want:     models.TierEvent,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := defaultInput(tt.stock)
			in.PityTier = tt.pityTier
			in.PityCounter = in.PityThreshold

			d, ok := Pick(in, maxRand{})
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, d.Tier)
				assert.True(t, d.PityTriggered)
			}
		})
	}
}

func Test_Pick_PityStreak(t *testing.T) {
	in := defaultInput(fullStock())
	rng := maxRand{}

	for i := 0; i < in.PityThreshold; i++ {
		d, ok := Pick(in, rng)
		require.True(t, ok)
		require.Equal(t, models.TierBlue, d.Tier)
		require.False(t, d.PityTriggered)
		in.PityCounter = NextPity(in.PityCounter, d.Tier, in.PityTier, in.Order)
	}
	require.Equal(t, 10, in.PityCounter)

	d, ok := Pick(in, rng)
	require.True(t, ok)
	assert.Equal(t, models.TierPurple, d.Tier)
	assert.True(t, d.PityTriggered)
	assert.Zero(t, NextPity(in.PityCounter, d.Tier, in.PityTier, in.Order))
}

func Test_NextPity(t *testing.T) {
	order := models.DefaultEscalationOrder
	assert.Equal(t, 4, NextPity(3, models.TierBlue, models.TierPurple, order))
	assert.Equal(t, 0, NextPity(3, models.TierPurple, models.TierPurple, order))
	assert.Equal(t, 0, NextPity(3, models.TierGold, models.TierPurple, order))
	assert.Equal(t, 0, NextPity(3, models.TierEvent, models.TierPurple, order))
	assert.Equal(t, 4, NextPity(3, models.TierPurple, models.TierGold, order))
	assert.Equal(t, 4, NextPity(3, models.TierBlue, models.TierGold, nil), "invalid order falls back to default")
}

func Test_Odds(t *testing.T) {
	weights := models.DefaultLotteryConfig().Weights
	stock := fullStock()
	stock[models.TierGold] = 0

	odds := Odds(weights, stock)
	require.Len(t, odds, len(models.LotteryTiers))

	byTier := make(map[models.Tier]models.TierOdds)
	sum := 0.0
	for _, o := range odds {
		byTier[o.Tier] = o
		f, _ := o.Percent.Float64()
		sum += f
	}

	assert.True(t, byTier[models.TierGold].Percent.IsZero())
	assert.Equal(t, "21.05", byTier[models.TierPurple].Percent.StringFixed(2))
	assert.Equal(t, "78.95", byTier[models.TierBlue].Percent.StringFixed(2))
	assert.True(t, byTier[models.TierEvent].Percent.IsZero())
	assert.Equal(t, 5, byTier[models.TierGold].Weight)
	assert.LessOrEqual(t, math.Abs(sum-100), 0.02)
}
