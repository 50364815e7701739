package fixed

func Mean(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	return Sum(points).DivInt(len(points))
}

// Variance is the population variance around mean.
func Variance(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}
	return squaredDiff(points, mean).DivInt(len(points))
}

func SampleVariance(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}
	return squaredDiff(points, mean).DivInt(len(points) - 1)
}

func StdDev(points []Point, mean Point) Point {
	return Variance(points, mean).Sqrt()
}

func SampleStdDev(points []Point, mean Point) Point {
	return SampleVariance(points, mean).Sqrt()
}

// DownsideDev only considers points below the risk free rate.
func DownsideDev(points []Point, riskFreeRate Point) Point {
	sum := Zero
	count := 0
	for _, point := range points {
		if point.Lt(riskFreeRate) {
			diff := point.Sub(riskFreeRate)
			sum = sum.Add(diff.Mul(diff))
			count++
		}
	}

	if count <= 1 {
		return Zero
	}

	return sum.DivInt(count).Sqrt()
}

func SharpeRatio(points []Point, riskFreeRate Point) Point {
	if len(points) == 0 {
		return Zero
	}

	mean := Mean(points)
	volatility := StdDev(points, mean)
	if volatility.IsZero() {
		return Zero
	}

	return mean.Sub(riskFreeRate).Div(volatility)
}

func SortinoRatio(points []Point, riskFreeRate Point) Point {
	if len(points) == 0 {
		return Zero
	}

	downside := DownsideDev(points, riskFreeRate)
	if downside.IsZero() {
		return Zero
	}

	return Mean(points).Sub(riskFreeRate).Div(downside)
}

func squaredDiff(points []Point, mean Point) Point {
	sum := Zero
	for _, point := range points {
		diff := point.Sub(mean)
		sum = sum.Add(diff.Mul(diff))
	}
	return sum
}
