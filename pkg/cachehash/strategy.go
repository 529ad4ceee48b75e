package cachehash

import (
	"fmt"

	"github.com/pickware/shopware-platform-sub008/pkg/config"
	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// RuleIDStrategy selects which active rule ids feed the context hash.
//
// Both strategies are supported permanently. They differ in cardinality:
// StrategyAreaFiltered only varies on rules that affect cached content,
// StrategyLegacy varies on every active rule.
type RuleIDStrategy int

const (
	// StrategyAreaFiltered hashes the rule ids tagged with a resolved area.
	StrategyAreaFiltered RuleIDStrategy = iota

	// StrategyLegacy hashes every active rule id.
	StrategyLegacy
)

// ParseStrategy maps a config.RuleIDStrategy value to a RuleIDStrategy.
func ParseStrategy(name string) (RuleIDStrategy, error) {
	switch name {
	case config.StrategyAreaFiltered, "":
		return StrategyAreaFiltered, nil
	case config.StrategyLegacy:
		return StrategyLegacy, nil
	default:
		return 0, fmt.Errorf("unknown rule id strategy %q", name)
	}
}

// String returns the configuration name of the strategy.
func (s RuleIDStrategy) String() string {
	switch s {
	case StrategyLegacy:
		return config.StrategyLegacy
	default:
		return config.StrategyAreaFiltered
	}
}

func (s RuleIDStrategy) resolveRuleIDs(vc storefront.VisitorContext, areas []string) []string {
	if s == StrategyLegacy {
		return vc.RuleIDs()
	}
	return vc.RuleIDsByArea(areas)
}
