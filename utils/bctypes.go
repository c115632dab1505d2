package utils

import (
	"fmt"
	"strings"
)

// BCType is the kind of a boundary condition attached to a boundary face group
type BCType uint8

const (
	// BCNone indicates no boundary condition (interior face)
	BCNone BCType = iota

	BCStateAll       // Exterior state prescribed by a function of (x, t)
	BCExtrapolate    // Exterior state equals the interior trace
	BCPressureOutlet // Fixed back pressure, extrapolated when supersonic
	BCSlipWall       // Inviscid wall, normal velocity reflected
	BCPeriodic       // Handled by mesh connectivity, never evaluated as a BC
)

func (bc BCType) String() string {
	names := map[BCType]string{
		BCNone:           "None",
		BCStateAll:       "StateAll",
		BCExtrapolate:    "Extrapolate",
		BCPressureOutlet: "PressureOutlet",
		BCSlipWall:       "SlipWall",
		BCPeriodic:       "Periodic",
	}
	if name, ok := names[bc]; ok {
		return name
	}
	return "Unknown"
}

// BCNameMap provides a mapping from common boundary condition names to BCType
// Keys are lowercase for case-insensitive matching
var BCNameMap = map[string]BCType{
	"stateall":        BCStateAll,
	"dirichlet":       BCStateAll,
	"extrapolate":     BCExtrapolate,
	"outflow":         BCExtrapolate,
	"pressureoutlet":  BCPressureOutlet,
	"pressure_outlet": BCPressureOutlet,
	"slipwall":        BCSlipWall,
	"slip_wall":       BCSlipWall,
	"inviscid_wall":   BCSlipWall,
	"periodic":        BCPeriodic,
}

// ParseBCName converts a boundary condition name string to BCType
// The matching is case-insensitive and trims whitespace
func ParseBCName(name string) (bc BCType, err error) {
	var ok bool
	if bc, ok = BCNameMap[strings.ToLower(strings.TrimSpace(name))]; !ok {
		err = fmt.Errorf("unknown boundary condition type %q", name)
	}
	return
}
