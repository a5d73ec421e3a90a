// Package types defines all core data types shared by the layers of
// the PolyTorus modular runtime.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. They carry no behavior beyond
// hashing and formatting helpers; layer semantics live in the layer
// packages.
package types

import "strings"

// Address identifies an account or a validator.
type Address string

// LayerType identifies one of the pluggable ledger layers.
type LayerType uint8

const (
	LayerConsensus LayerType = iota + 1
	LayerExecution
	LayerSettlement
	LayerDataAvailability
)

// String returns a human-readable layer name.
func (l LayerType) String() string {
	switch l {
	case LayerConsensus:
		return "consensus"
	case LayerExecution:
		return "execution"
	case LayerSettlement:
		return "settlement"
	case LayerDataAvailability:
		return "data_availability"
	default:
		return "unknown"
	}
}

// ParseLayerType converts a config-file layer key to a LayerType.
func ParseLayerType(s string) (LayerType, bool) {
	switch strings.ToLower(s) {
	case "consensus":
		return LayerConsensus, true
	case "execution":
		return LayerExecution, true
	case "settlement":
		return LayerSettlement, true
	case "data_availability", "da":
		return LayerDataAvailability, true
	default:
		return 0, false
	}
}

// HealthStatus is the registry's view of a layer's health.
type HealthStatus uint8

const (
	HealthUnknown HealthStatus = iota
	HealthHealthy
	HealthDegraded
	HealthUnhealthy
)

func (h HealthStatus) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// LayerInfo is a layer registry entry. Created on registration,
// mutated only via explicit health updates, never deleted during the
// process lifetime.
type LayerInfo struct {
	LayerType    LayerType    `cramberry:"1"`
	LayerID      string       `cramberry:"2"`
	Capabilities []string     `cramberry:"3"`
	HealthStatus HealthStatus `cramberry:"4"`
}

// HasCapability reports whether the layer declared the named capability.
func (li LayerInfo) HasCapability(name string) bool {
	for _, c := range li.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}
