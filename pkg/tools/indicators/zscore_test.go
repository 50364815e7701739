package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

func TestZScore_Value(t *testing.T) {
	tests := []struct {
		name       string
		windowSize int
		data       []float64
		want       float64
		wantReady  bool
	}{
		{
			name:       "not enough data",
			windowSize: 3,
			data:       []float64{1.0, 2.0},
			want:       0.0,
			wantReady:  false,
		},
		{
			name:       "exact window size",
			windowSize: 3,
			data:       []float64{1.0, 2.0, 3.0},
			want:       1,
			wantReady:  true,
		},
		{
			name:       "more than window size",
			windowSize: 3,
			data:       []float64{1.0, 2.0, 3.0, 4.0},
			want:       1,
			wantReady:  true,
		},
		{
			name:       "larger window",
			windowSize: 5,
			data:       []float64{10.0, 12.0, 14.0, 16.0, 18.0},
			want:       1.2649110640673518,
			wantReady:  true,
		},
		{
			name:       "below the mean",
			windowSize: 3,
			data:       []float64{3.0, 2.0, 1.0},
			want:       -1,
			wantReady:  true,
		},
		{
			name:       "flat window",
			windowSize: 4,
			data:       []float64{1.5, 1.5, 1.5, 1.5},
			want:       0,
			wantReady:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := NewZScore(tt.windowSize)
			for _, v := range tt.data {
				z.AddPoint(fixed.FromFloat64(v))
			}

			assert.Equal(t, tt.wantReady, z.IsReady())

			got, _ := z.Value().Float64()
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestZScore_Mean(t *testing.T) {
	z := NewZScore(3)
	for i := 0; i < 10; i++ {
		z.AddPoint(fixed.FromInt(i, 0))
	}

	assert.True(t, z.IsReady())
	assert.True(t, z.Mean().Eq(fixed.FromInt(8, 0)))
}

func BenchmarkZScore_AddPoint(b *testing.B) {
	z := NewZScore(20)
	p := fixed.FromFloat64(100.0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		z.AddPoint(p)
	}
}

func BenchmarkZScore_Value(b *testing.B) {
	z := NewZScore(20)
	for i := 0; i < 20; i++ {
		z.AddPoint(fixed.FromFloat64(float64(i)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = z.Value()
	}
}
