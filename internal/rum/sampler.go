package rum

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Sampler decides once per session whether its events are kept.
type Sampler interface {
	Sample(sessionID uuid.UUID) bool
}

// knuthFactor spreads sequential IDs over the whole uint64 range.
const knuthFactor = uint64(1111111111111111111)

// RateSampler keeps a fixed share of sessions. The decision is a pure
// function of the session ID, so a session is sampled the same way
// everywhere it is evaluated.
type RateSampler struct {
	rate float64
}

// NewRateSampler returns a sampler keeping percent% of sessions. Values are
// clamped to [0, 100].
func NewRateSampler(percent float64) *RateSampler {
	rate := percent / 100
	switch {
	case math.IsNaN(rate) || rate < 0:
		rate = 0
	case rate > 1:
		rate = 1
	}
	return &RateSampler{rate: rate}
}

// Rate returns the kept share in [0, 1].
func (s *RateSampler) Rate() float64 { return s.rate }

func (s *RateSampler) Sample(sessionID uuid.UUID) bool {
	if s.rate >= 1 {
		return true
	}
	if s.rate <= 0 {
		return false
	}
	n := binary.BigEndian.Uint64(sessionID[8:])
	return n*knuthFactor < uint64(s.rate*math.MaxUint64)
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func(sessionID uuid.UUID) bool

func (f SamplerFunc) Sample(sessionID uuid.UUID) bool { return f(sessionID) }
