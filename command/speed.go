package command

import "sync"

// Speed multiplier bounds shared by every session.
const (
	SpeedStep = 0.2
	SpeedMin  = 0.2
	SpeedMax  = 3.0
)

// SpeedController holds the shared speed multiplier. All sessions read and
// adjust the same value; changes are broadcast by the websocket handler.
type SpeedController struct {
	mu    sync.Mutex
	value float64
}

func NewSpeedController() *SpeedController {
	return &SpeedController{value: 1.0}
}

func (s *SpeedController) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Increase raises the multiplier by one step, clamped at SpeedMax, and
// returns the new value.
func (s *SpeedController) Increase() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = min(s.value+SpeedStep, SpeedMax)
	return s.value
}

// Decrease lowers the multiplier by one step, clamped at SpeedMin, and
// returns the new value.
func (s *SpeedController) Decrease() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = max(s.value-SpeedStep, SpeedMin)
	return s.value
}

// Set clamps the given value into [SpeedMin, SpeedMax] and stores it,
// returning the clamped result.
func (s *SpeedController) Set(v float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = max(SpeedMin, min(SpeedMax, v))
	return s.value
}
