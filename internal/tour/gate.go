package tour

// signal is one of the two observations that gate auto-advance.
type signal int

const (
	durationElapsed signal = iota
	speechComplete
)

// gate combines the two phases of auto-advance. A stop advances only when
// its display duration has elapsed and its narration has finished, in
// either order. The gate is reset whenever a stop is entered.
type gate struct {
	durationElapsed bool
	speechComplete  bool
}

func (g gate) observe(s signal) gate {
	switch s {
	case durationElapsed:
		g.durationElapsed = true
	case speechComplete:
		g.speechComplete = true
	}
	return g
}

func (g gate) ready() bool {
	return g.durationElapsed && g.speechComplete
}

// waiting reports whether the duration has elapsed but narration is still
// playing.
func (g gate) waiting() bool {
	return g.durationElapsed && !g.speechComplete
}
