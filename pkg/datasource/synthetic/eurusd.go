package synthetic

import (
	"math/rand"
	"time"

	"github.com/peter-kozarec/strategytester/pkg/datasource"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// NewEURUSDSeries generates n one-minute EURUSD ticks around the 1.0550 level.
func NewEURUSDSeries(rng *rand.Rand, startTime time.Time, n int) (datasource.Series, error) {
	const (
		eurUsdStartPrice = "1.0550"
		eurUsdScale      = 0.0002
	)

	g := NewGenerator(rng, startTime)
	g.SetNoise(0, eurUsdScale)

	times, prices := g.Generate(n)
	start := fixed.MustParse(eurUsdStartPrice)
	for i := range prices {
		prices[i] = prices[i].Mul(start).Round(g.normPriceDigits)
	}

	return datasource.FXPair.Series("EURUSD", times, prices)
}
