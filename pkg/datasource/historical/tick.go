package historical

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

// BinaryTick is the on-disk record. Fields are padding free and stored in host
// byte order.
type BinaryTick struct {
	TimeStamp  int64
	Price      float64
	Spread     float64
	Commission float64
	Slippage   float64
	Settlement float64
}

func (b BinaryTick) ToTick(tick *common.Tick) {
	tick.TimeStamp = time.Unix(0, b.TimeStamp).UTC()
	tick.Price = fixed.FromFloat64(b.Price)
	tick.Spread = fixed.FromFloat64(b.Spread)
	tick.Commission = fixed.FromFloat64(b.Commission)
	tick.Slippage = fixed.FromFloat64(b.Slippage)
	tick.Settlement = fixed.FromFloat64(b.Settlement)
}

func FromTick(tick common.Tick) BinaryTick {
	return BinaryTick{
		TimeStamp:  tick.TimeStamp.UnixNano(),
		Price:      toFloat(tick.Price),
		Spread:     toFloat(tick.Spread),
		Commission: toFloat(tick.Commission),
		Slippage:   toFloat(tick.Slippage),
		Settlement: toFloat(tick.Settlement),
	}
}

// WriteBinary exports ticks in the layout Source reads back.
func WriteBinary(w io.Writer, ticks []common.Tick) error {
	for i, tick := range ticks {
		if err := binary.Write(w, binary.NativeEndian, FromTick(tick)); err != nil {
			return fmt.Errorf("unable to write tick %d: %w", i, err)
		}
	}
	return nil
}

func toFloat(p fixed.Point) float64 {
	f, _ := p.Float64()
	return f
}
