package lander

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/landersim/internal/control"
)

var (
	ErrInvalidThrottle = errors.New("lander: invalid throttle value")
	ErrInvalidGains    = errors.New("lander: invalid PID gains")
)

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}

// ParseThrottle parses a throttle setting in percent.
func ParseThrottle(s string) (float64, error) {
	v, err := parseFinite(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidThrottle, err)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: %g out of range [0, 100]", ErrInvalidThrottle, v)
	}
	return v, nil
}

// ParseGains parses a Kp, Ki, Kd triple. Either all three parse or none is
// returned.
func ParseGains(kp, ki, kd string) (control.Gains, error) {
	var vals [3]float64
	for i, s := range []string{kp, ki, kd} {
		v, err := parseFinite(s)
		if err != nil {
			return control.Gains{}, fmt.Errorf("%w: %v", ErrInvalidGains, err)
		}
		if v < 0 {
			return control.Gains{}, fmt.Errorf("%w: %g is negative", ErrInvalidGains, v)
		}
		vals[i] = v
	}
	return control.Gains{Kp: vals[0], Ki: vals[1], Kd: vals[2]}, nil
}

// ValidateGains applies the ParseGains rules to already numeric gains.
func ValidateGains(g control.Gains) error {
	for _, v := range []float64{g.Kp, g.Ki, g.Kd} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidGains, g)
		}
	}
	return nil
}
