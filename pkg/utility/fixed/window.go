package fixed

// Window keeps the last n points pushed into it.
type Window struct {
	buffer []Point
	size   int
	tail   int
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		panic("window capacity must be positive")
	}
	return &Window{buffer: make([]Point, capacity)}
}

func (w *Window) Push(p Point) {
	w.buffer[w.tail] = p
	w.tail = (w.tail + 1) % len(w.buffer)
	if w.size < len(w.buffer) {
		w.size++
	}
}

func (w *Window) Len() int   { return w.size }
func (w *Window) Cap() int   { return len(w.buffer) }
func (w *Window) Full() bool { return w.size == len(w.buffer) }

func (w *Window) Reset() {
	w.size = 0
	w.tail = 0
}

// Values returns the points oldest first.
func (w *Window) Values() []Point {
	out := make([]Point, w.size)
	start := (w.tail - w.size + len(w.buffer)) % len(w.buffer)
	for i := range out {
		out[i] = w.buffer[(start+i)%len(w.buffer)]
	}
	return out
}

func (w *Window) Mean() Point {
	return Mean(w.Values())
}

func (w *Window) Variance() Point {
	values := w.Values()
	return Variance(values, Mean(values))
}
