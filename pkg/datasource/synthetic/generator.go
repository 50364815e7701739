package synthetic

import (
	"math"
	"math/rand"
	"time"

	"github.com/peter-kozarec/strategytester/pkg/datasource"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

const (
	defaultScale       = 0.02
	defaultPriceDigits = 5
	defaultInterval    = time.Minute
)

// Generator produces exponentiated cumulative Laplace noise, a random walk in
// log price starting at 1.
type Generator struct {
	rng *rand.Rand

	startTime time.Time
	interval  time.Duration

	location float64
	scale    float64

	normPriceDigits int
}

func NewGenerator(rng *rand.Rand, startTime time.Time) *Generator {
	return &Generator{
		rng:             rng,
		startTime:       startTime,
		interval:        defaultInterval,
		scale:           defaultScale,
		normPriceDigits: defaultPriceDigits,
	}
}

func (g *Generator) SetInterval(interval time.Duration) {
	g.interval = interval
}

func (g *Generator) SetNoise(location, scale float64) {
	g.location = location
	g.scale = scale
}

func (g *Generator) SetPriceDigits(digits int) {
	g.normPriceDigits = digits
}

// Generate returns n evenly spaced timestamps and their prices.
func (g *Generator) Generate(n int) ([]time.Time, []fixed.Point) {
	times := make([]time.Time, n)
	prices := make([]fixed.Point, n)

	logPrice := 0.0
	for i := 0; i < n; i++ {
		logPrice += g.laplace()
		times[i] = g.startTime.Add(time.Duration(i) * g.interval)
		prices[i] = fixed.FromFloat64(math.Exp(logPrice)).Round(g.normPriceDigits)
	}

	return times, prices
}

// Series generates n ticks for an asset priced with the preset costs.
func (g *Generator) Series(id string, preset datasource.Preset, n int) (datasource.Series, error) {
	times, prices := g.Generate(n)
	return preset.Series(id, times, prices)
}

// laplace samples by inverting the Laplace CDF.
func (g *Generator) laplace() float64 {
	u := g.rng.Float64() - 0.5
	for u == -0.5 {
		u = g.rng.Float64() - 0.5
	}
	if u < 0 {
		return g.location + g.scale*math.Log(1+2*u)
	}
	return g.location - g.scale*math.Log(1-2*u)
}
