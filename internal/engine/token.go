package engine

import (
	"strconv"
	"time"

	"trenches/internal/domain"
)

const (
	// InitialPrice is the launch price of every spawned token.
	InitialPrice = 0.01
	// DefaultTotalSupply is the fixed supply used for market cap.
	DefaultTotalSupply = 1_000_000

	// SoonThreshold and MigrationThreshold bound the lifecycle bands.
	SoonThreshold      = 0.10
	MigrationThreshold = 1.00

	// PriceHistoryLen is the sparkline length kept per token.
	PriceHistoryLen = 60

	maxTokens       = 50
	flatSpawnBelow  = 30
	flatSpawnChance = 0.10
	targetTokens    = 40
	minSpawnChance  = 0.005

	idLength   = 8
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Factory creates tokens. It owns the id counter and name generator of one
// simulation, so independent simulations never share identity state.
type Factory struct {
	src   Source
	names *NameGenerator
	now   func() time.Time
	idSeq uint64
}

// NewFactory creates a token factory.
func NewFactory(src Source, now func() time.Time) *Factory {
	return &Factory{
		src:   src,
		names: NewNameGenerator(src),
		now:   now,
	}
}

// NewToken creates a fresh token at InitialPrice with status new.
func (f *Factory) NewToken() domain.Token {
	id := f.names.Generate()
	return domain.Token{
		ID:           f.nextID(),
		Name:         id.Name,
		Ticker:       id.Ticker,
		Avatar:       id.Avatar,
		Status:       domain.StatusNew,
		Price:        NewPriceState(InitialPrice, f.src),
		CreatedAtMs:  f.now().UnixMilli(),
		Liquidity:    50 + f.src.Float64()*200,
		MarketCap:    InitialPrice * DefaultTotalSupply,
		PriceHistory: []float64{InitialPrice},
		TotalSupply:  DefaultTotalSupply,
	}
}

// nextID returns 8 random alphanumerics followed by the factory's counter.
func (f *Factory) nextID() string {
	f.idSeq++
	b := make([]byte, idLength, idLength+20)
	for i := range b {
		b[i] = idAlphabet[int(f.src.Float64()*float64(len(idAlphabet)))]
	}
	return string(strconv.AppendUint(b, f.idSeq, 10))
}

// UpdateStatus re-evaluates t's lifecycle status from its current price.
// Migration is one-way and stamps MigratedAtMs once; new and soon follow the
// 0.10 boundary in both directions.
func UpdateStatus(t domain.Token, nowMs int64) domain.Token {
	price := t.Price.Price
	switch {
	case t.Status == domain.StatusMigrated:
	case price >= MigrationThreshold:
		t.Status = domain.StatusMigrated
		if t.MigratedAtMs == nil {
			ts := nowMs
			t.MigratedAtMs = &ts
		}
	case t.Status == domain.StatusNew && price >= SoonThreshold:
		t.Status = domain.StatusSoon
	case t.Status == domain.StatusSoon && price < SoonThreshold:
		t.Status = domain.StatusNew
	}
	return t
}

// SpawnChance returns the per-tick probability of launching a new token when
// count tokens are active.
func SpawnChance(count int) float64 {
	switch {
	case count >= maxTokens:
		return 0
	case count < flatSpawnBelow:
		return flatSpawnChance
	default:
		return max(minSpawnChance, 0.05*(1-float64(count)/targetTokens))
	}
}

// ShouldSpawn draws the spawn decision for count active tokens.
func ShouldSpawn(count int, src Source) bool {
	if count >= maxTokens {
		return false
	}
	return src.Float64() < SpawnChance(count)
}
