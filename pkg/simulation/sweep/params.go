package sweep

import (
	"fmt"
	"maps"
	"math/rand"
	"slices"
	"strconv"
	"strings"
)

type Params map[string]float64

func (p Params) String() string {
	var b strings.Builder
	for i, k := range slices.Sorted(maps.Keys(p)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(p[k], 'g', -1, 64))
	}
	return b.String()
}

// Merge returns a copy of base overridden by p.
func (p Params) Merge(base map[string]float64) Params {
	out := make(Params, len(base)+len(p))
	maps.Copy(out, base)
	maps.Copy(out, p)
	return out
}

// Grid is the cartesian product of the paramset. Keys are iterated in sorted
// order and the last key varies fastest.
func Grid(paramset map[string][]float64) []Params {
	keys := slices.Sorted(maps.Keys(paramset))

	grid := []Params{{}}
	for _, k := range keys {
		values := paramset[k]
		next := make([]Params, 0, len(grid)*len(values))
		for _, g := range grid {
			for _, v := range values {
				p := maps.Clone(g)
				p[k] = v
				next = append(next, p)
			}
		}
		grid = next
	}
	return grid
}

// Random draws q distinct combinations of the grid, the whole grid in random
// order when q exceeds its size.
func Random(paramset map[string][]float64, q int, rng *rand.Rand) []Params {
	grid := Grid(paramset)
	rng.Shuffle(len(grid), func(i, j int) { grid[i], grid[j] = grid[j], grid[i] })
	if q < len(grid) {
		grid = grid[:q]
	}
	return grid
}

// ParseAxis reads one grid axis in the form key=v1,v2,v3.
func ParseAxis(s string) (string, []float64, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok || key == "" || raw == "" {
		return "", nil, fmt.Errorf("invalid grid axis %q, expected key=v1,v2", s)
	}

	var values []float64
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return "", nil, fmt.Errorf("grid axis %q: %w", key, err)
		}
		values = append(values, v)
	}
	return strings.TrimSpace(key), values, nil
}
