package config

import (
	"github.com/tradingdna/evolve/internal/genes"
)

// DefaultGeneConfig builds the `gene` configuration block described in
// spec 6 directly from each gene type's own Schema()/DefaultParams(),
// so a block built this way never drifts from the gene implementations
// themselves. Nothing in this module calls it, and evolve.example.yaml
// carries no `gene` block. base is the shared evolutionary
// defaults applied uniformly across gene types (spec 6's `base` block);
// per-type overrides are not modeled since spec.md does not name any.
func DefaultGeneConfig(base BaseGeneParams) map[string]GeneConfig {
	out := make(map[string]GeneConfig, len(genes.AllTypes))
	for _, t := range genes.AllTypes {
		defaults := genes.DefaultParams(t)
		g, err := genes.New(t, nil)
		if err != nil {
			continue
		}
		constraints := make(map[string]Constraint, len(g.Schema()))
		for name, c := range g.Schema() {
			constraints[name] = Constraint{Min: c.Min, Max: c.Max, Types: c.Enum}
		}
		defaultMap := make(map[string]any, len(defaults))
		for k, v := range defaults {
			defaultMap[k] = v
		}
		out[string(t)] = GeneConfig{
			Default:     defaultMap,
			Constraints: constraints,
			Base:        base,
		}
	}
	return out
}
