package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger so every battle roll leaves an audit line.
// Roller itself satisfies Source and can be injected anywhere a Source goes.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to
// logger at debug level.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Intn returns a random int in [0, n) from the wrapped Source.
func (r *Roller) Intn(n int) int {
	v := r.src.Intn(n)
	r.logger.Debug("roll",
		zap.Int("bound", n),
		zap.Int("value", v),
	)
	return v
}

// D20 rolls a twenty-sided die and logs the result with a label identifying
// what the roll was for ("attack", "defense", "loot", ...).
//
// Postcondition: Returns a value in [1, 20].
func (r *Roller) D20(label string) int {
	v := r.src.Intn(20) + 1
	r.logger.Debug("d20 roll",
		zap.String("for", label),
		zap.Int("result", v),
	)
	return v
}
