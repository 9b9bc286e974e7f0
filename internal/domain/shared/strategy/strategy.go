// Package strategy holds the pluggable-policy scaffolding domain services
// build on. The ledger currently ships one strategy family, payment
// allocation, but the registry and metadata are shared so new families
// slot in without new plumbing.
package strategy

// StrategyType groups strategies into families.
type StrategyType string

const (
	// StrategyTypeAllocation covers policies that spread a payment
	// across open charges.
	StrategyTypeAllocation StrategyType = "allocation"
)

func (t StrategyType) String() string {
	return string(t)
}

// IsValid reports whether t names a known strategy family.
func (t StrategyType) IsValid() bool {
	return t == StrategyTypeAllocation
}

// Strategy is the metadata surface every concrete strategy exposes, used
// for registry lookups and operator-facing listings.
type Strategy interface {
	// Name is the unique registry key, e.g. "fifo_allocation".
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy implements the metadata surface so concrete strategies
// only carry their policy logic.
type BaseStrategy struct {
	name         string
	strategyType StrategyType
	description  string
}

func NewBaseStrategy(name string, strategyType StrategyType, description string) BaseStrategy {
	return BaseStrategy{
		name:         name,
		strategyType: strategyType,
		description:  description,
	}
}

func (s BaseStrategy) Name() string {
	return s.name
}

func (s BaseStrategy) Type() StrategyType {
	return s.strategyType
}

func (s BaseStrategy) Description() string {
	return s.description
}
