// Package hardware identifies the device the engine runs on and drives its
// display backlight.
package hardware

import (
	"fmt"
	"strings"
)

// Type is the device generation. It selects camera intrinsics, the ambient
// light normalisation and whether the wide camera exists.
type Type int

const (
	PC Type = iota
	EON
	TICI
)

func (t Type) String() string {
	switch t {
	case EON:
		return "eon"
	case TICI:
		return "tici"
	default:
		return "pc"
	}
}

// ParseType maps a config string to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pc", "":
		return PC, nil
	case "eon":
		return EON, nil
	case "tici":
		return TICI, nil
	default:
		return PC, fmt.Errorf("unknown hardware type %q (must be pc, eon or tici)", s)
	}
}

// HasWideCamera reports whether the device carries a wide road camera.
func (t Type) HasWideCamera() bool { return t == TICI }
