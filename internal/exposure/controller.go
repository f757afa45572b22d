package exposure

import (
	"fmt"
	"math"
)

// Default control constants.
const (
	DefaultDesiredMSV  = 2.5
	DefaultKP          = 0.05
	DefaultKI          = 0.01
	DefaultMaxIntegral = 3.0
	DefaultDeadband    = 0.5
)

// Params holds the gains and limits of the PI control law.
type Params struct {
	// DesiredMSV is the setpoint, the middle of the MSV range by default.
	DesiredMSV float64 `yaml:"desired_msv" json:"desired_msv"`

	// KP is the proportional gain in EV per unit of MSV error.
	KP float64 `yaml:"kp" json:"kp"`

	// KI is the integral gain in EV per unit of accumulated MSV error.
	KI float64 `yaml:"ki" json:"ki"`

	// MaxIntegral bounds the magnitude of the accumulated error.
	MaxIntegral float64 `yaml:"max_integral" json:"max_integral"`

	// Deadband is the error magnitude at or below which EV is left unchanged.
	Deadband float64 `yaml:"deadband" json:"deadband"`
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		DesiredMSV:  DefaultDesiredMSV,
		KP:          DefaultKP,
		KI:          DefaultKI,
		MaxIntegral: DefaultMaxIntegral,
		Deadband:    DefaultDeadband,
	}
}

// Validate checks that every parameter is finite and that gains and limits
// are non-negative.
func (p Params) Validate() error {
	fields := []struct {
		name   string
		value  float64
		nonNeg bool
	}{
		{"desired_msv", p.DesiredMSV, false},
		{"kp", p.KP, true},
		{"ki", p.KI, true},
		{"max_integral", p.MaxIntegral, true},
		{"deadband", p.Deadband, true},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParams, f.name)
		}
		if f.nonNeg && f.value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %g", ErrInvalidParams, f.name, f.value)
		}
	}
	return nil
}

// State is the mutable part of a Controller.
type State struct {
	IntegralError float64 `json:"integral_error"`
	EV            float64 `json:"ev"`
}

// Controller adjusts exposure value with a PI control law, one Step per frame.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	params Params
	state  State
}

// NewController returns a controller starting at startEV with a zero integral.
func NewController(startEV float64, params Params) (*Controller, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !isFinite(startEV) {
		return nil, fmt.Errorf("%w: start EV %v is not finite", ErrInvalidInput, startEV)
	}
	return &Controller{
		params: params,
		state:  State{EV: startEV},
	}, nil
}

// Step consumes one mean sample value and returns the EV to apply next.
//
// The error is accumulated into the integral on every call. EV only moves when
// the error magnitude exceeds the dead-band. A non-finite msv is rejected with
// ErrInvalidInput and leaves the state untouched.
func (c *Controller) Step(msv float64) (float64, error) {
	if !isFinite(msv) {
		return c.state.EV, fmt.Errorf("%w: msv %v is not finite", ErrInvalidInput, msv)
	}

	errP := c.params.DesiredMSV - msv

	c.state.IntegralError += errP
	if math.Abs(c.state.IntegralError) > c.params.MaxIntegral {
		c.state.IntegralError = math.Copysign(c.params.MaxIntegral, c.state.IntegralError)
	}

	if math.Abs(errP) <= c.params.Deadband {
		return c.state.EV, nil
	}

	c.state.EV += c.params.KP*errP + c.params.KI*c.state.IntegralError
	return c.state.EV, nil
}

// EV returns the current exposure value.
func (c *Controller) EV() float64 {
	return c.state.EV
}

// State returns a copy of the controller state.
func (c *Controller) State() State {
	return c.state
}

// Params returns the control parameters.
func (c *Controller) Params() Params {
	return c.params
}

// Restore replaces the controller state, e.g. to resume a saved session.
func (c *Controller) Restore(s State) error {
	if !isFinite(s.EV) || !isFinite(s.IntegralError) {
		return fmt.Errorf("%w: state %+v is not finite", ErrInvalidInput, s)
	}
	c.state = s
	return nil
}

// Reset starts a new session at startEV with a zero integral.
func (c *Controller) Reset(startEV float64) error {
	return c.Restore(State{EV: startEV})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
