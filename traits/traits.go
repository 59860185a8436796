// Package traits defines the fixed set of heritable trait kinds and the
// trait vector carried by organisms and patch selection targets.
package traits

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies one heritable trait.
type Kind uint8

const (
	Pigmentation  Kind = iota // Regressive: costly when unused in darkness
	EyeSize                   // Regressive
	MetabolicRate             // Tracks food availability; also an energy cost
	LateralLine               // Adaptive: non-visual mechanosensing
	OlfactoryBulb             // Adaptive: chemosensing

	NumKinds = int(iota)
)

// Class groups trait kinds by how selection acts on them.
type Class uint8

const (
	Regressive Class = iota
	Metabolic
	Adaptive
)

// All lists every trait kind in index order.
var All = [NumKinds]Kind{Pigmentation, EyeSize, MetabolicRate, LateralLine, OlfactoryBulb}

var kindNames = [NumKinds]string{
	Pigmentation:  "pigmentation",
	EyeSize:       "eye_size",
	MetabolicRate: "metabolic_rate",
	LateralLine:   "lateral_line",
	OlfactoryBulb: "olfactory_bulb",
}

var kindClasses = [NumKinds]Class{
	Pigmentation:  Regressive,
	EyeSize:       Regressive,
	MetabolicRate: Metabolic,
	LateralLine:   Adaptive,
	OlfactoryBulb: Adaptive,
}

// String returns the snake_case trait name used in config and metrics.
func (k Kind) String() string {
	if int(k) >= NumKinds {
		return fmt.Sprintf("trait(%d)", k)
	}
	return kindNames[k]
}

// Class returns the selection class of the trait.
func (k Kind) Class() Class {
	return kindClasses[k]
}

// ParseKind looks up a trait kind by name.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown trait %q", name)
}

// Names returns the trait names in index order.
func Names() []string {
	names := make([]string, NumKinds)
	copy(names, kindNames[:])
	return names
}

// Vector holds one value per trait kind.
// Being an array, it is copied on assignment; no two holders share storage.
type Vector [NumKinds]float64

// Get returns the value for a trait kind.
func (v *Vector) Get(k Kind) float64 {
	return v[k]
}

// Set assigns the value for a trait kind.
func (v *Vector) Set(k Kind, value float64) {
	v[k] = value
}

// Clamp limits every value to [0,1].
func (v *Vector) Clamp() {
	for i := range v {
		v[i] = Clamp01(v[i])
	}
}

// InRange reports whether every value lies in [0,1].
func (v Vector) InRange() bool {
	for _, x := range v {
		if x < 0 || x > 1 || x != x {
			return false
		}
	}
	return true
}

// Map converts the vector to a name-keyed map.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, NumKinds)
	for i, x := range v {
		m[kindNames[i]] = x
	}
	return m
}

// FromMap builds a vector from a name-keyed map. Missing kinds are zero.
func FromMap(m map[string]float64) (Vector, error) {
	var v Vector
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, name := range keys {
		k, err := ParseKind(name)
		if err != nil {
			return Vector{}, err
		}
		v[k] = m[name]
	}
	return v, nil
}

// String formats the vector as name=value pairs.
func (v Vector) String() string {
	var b strings.Builder
	for i, x := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%.3f", kindNames[i], x)
	}
	return b.String()
}

// Clamp01 limits x to [0,1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
