package fixed

var (
	Zero     = FromInt(0, 0)
	Half     = FromInt(5, 1)
	One      = FromInt(1, 0)
	Two      = FromInt(2, 0)
	Thousand = FromInt(1000, 0)
)

// Clamp limits p to [lo, hi]. When lo > hi the lower bound wins.
func Clamp(p, lo, hi Point) Point {
	if p.Gt(hi) {
		p = hi
	}
	if p.Lt(lo) {
		p = lo
	}
	return p
}

func Sum(points []Point) Point {
	sum := Zero
	for _, point := range points {
		sum = sum.Add(point)
	}
	return sum
}
