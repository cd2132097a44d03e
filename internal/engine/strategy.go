package engine

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidStrategy is returned for strategy names and values outside the
// three supported strategies.
var ErrInvalidStrategy = errors.New("invalid detection strategy")

// Strategy selects how the two primitive detectors are combined.
type Strategy int

const (
	// Classical runs the edge/contour detector on the whole image.
	Classical Strategy = iota + 1
	// Learned runs the object-detection model, with one low-threshold retry.
	Learned
	// Fused proposes a region with the model and measures it classically.
	Fused
)

// Strategies lists every strategy in evaluation order.
var Strategies = []Strategy{Classical, Learned, Fused}

// Valid reports whether s is one of the defined strategies.
func (s Strategy) Valid() bool {
	return s >= Classical && s <= Fused
}

func (s Strategy) String() string {
	switch s {
	case Classical:
		return "classical"
	case Learned:
		return "learned"
	case Fused:
		return "fused"
	}
	return "invalid"
}

// ParseStrategy accepts classical, learned and fused, plus the names opencv,
// yolo and hybrid used by older logs. Matching is case-insensitive.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classical", "opencv":
		return Classical, nil
	case "learned", "yolo":
		return Learned, nil
	case "fused", "hybrid":
		return Fused, nil
	}
	return 0, errors.Wrapf(ErrInvalidStrategy, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.Wrapf(ErrInvalidStrategy, "value %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
