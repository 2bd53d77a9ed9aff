package chance

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide labelled, logged decisions.
// Every draw is logged at debug level with its label so a single agent's
// behavior can be reconstructed from the log.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller drawing from src and logging to logger.
//
// Precondition: src must be non-nil. A nil logger disables logging.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying Source.
func (r *Roller) Source() Source { return r.src }

// Intn returns src.Intn(n) without logging, so a Roller is itself a Source.
func (r *Roller) Intn(n int) int { return r.src.Intn(n) }

// Float64 returns src.Float64() without logging.
func (r *Roller) Float64() float64 { return r.src.Float64() }

// Chance reports whether a uniform draw falls below p.
//
// Postcondition: p <= 0 never hits; p >= 1 always hits. One draw is consumed either way.
func (r *Roller) Chance(label string, p float64) bool {
	draw := r.src.Float64()
	hit := draw < p
	r.logger.Debug("chance",
		zap.String("label", label),
		zap.Float64("p", p),
		zap.Float64("draw", draw),
		zap.Bool("hit", hit),
	)
	return hit
}

// Between returns a uniform float in [lo, hi).
func (r *Roller) Between(label string, lo, hi float64) float64 {
	v := lo + (hi-lo)*r.src.Float64()
	r.logger.Debug("between",
		zap.String("label", label),
		zap.Float64("lo", lo),
		zap.Float64("hi", hi),
		zap.Float64("value", v),
	)
	return v
}

// IntBetween returns a uniform int in [lo, hi] inclusive.
//
// Precondition: hi >= lo.
func (r *Roller) IntBetween(label string, lo, hi int) int {
	v := lo + r.src.Intn(hi-lo+1)
	r.logger.Debug("int between",
		zap.String("label", label),
		zap.Int("lo", lo),
		zap.Int("hi", hi),
		zap.Int("value", v),
	)
	return v
}

// Sign returns +1 or -1 with equal probability.
func (r *Roller) Sign(label string) int {
	if r.src.Intn(2) == 0 {
		r.logger.Debug("sign", zap.String("label", label), zap.Int("value", -1))
		return -1
	}
	r.logger.Debug("sign", zap.String("label", label), zap.Int("value", 1))
	return 1
}
