package data

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/tradingdna/evolve/pkg/types"
)

func cleanWindow(n int) []*types.OHLCV {
	out := make([]*types.OHLCV, n)
	price := 100.0
	start := time.Now().Add(-time.Duration(n) * time.Hour)
	for i := 0; i < n; i++ {
		c := decimal.NewFromFloat(price)
		out[i] = &types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c.Mul(decimal.NewFromFloat(1.01)),
			Low:       c.Mul(decimal.NewFromFloat(0.99)),
			Close:     c,
			Volume:    decimal.NewFromFloat(1000),
		}
		price *= 1.001
	}
	return out
}

func TestValidate_CleanWindowIsUsable(t *testing.T) {
	v := NewDataQualityValidator(zap.NewNop())
	report := v.Validate(cleanWindow(50), "BTC-USD")
	assert.True(t, report.IsUsable)
	assert.Equal(t, 0, report.OHLCErrorCount)
}

func TestValidate_NegativePriceIsCritical(t *testing.T) {
	v := NewDataQualityValidator(zap.NewNop())
	bars := cleanWindow(10)
	bars[5].Close = decimal.NewFromFloat(-1)
	report := v.Validate(bars, "BTC-USD")
	assert.False(t, report.IsUsable)
	assert.Greater(t, report.PriceAnomalyCount, 0)
}

func TestValidate_OHLCInconsistencyDetected(t *testing.T) {
	v := NewDataQualityValidator(zap.NewNop())
	bars := cleanWindow(10)
	bars[3].High = decimal.NewFromFloat(50) // below low
	report := v.Validate(bars, "BTC-USD")
	assert.False(t, report.IsUsable)
	assert.Greater(t, report.OHLCErrorCount, 0)
}

func TestValidate_EmptyWindowIsUnusable(t *testing.T) {
	v := NewDataQualityValidator(zap.NewNop())
	report := v.Validate(nil, "BTC-USD")
	assert.False(t, report.IsUsable)
	assert.Equal(t, 0, report.QualityScore)
}
