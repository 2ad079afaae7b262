package objective

import "fmt"

// New constructs the Objective implementation named by variant, applying
// cfg. Unknown variants are a configuration error, not a panic: callers
// reach this from parsed CLI/config input.
func New(variant Variant, cfg Config) (Objective, error) {
	var obj Objective
	switch variant {
	case "", VariantPlain:
		obj = NewMapEq()
	case VariantMemory:
		obj = NewMemMapEq()
	case VariantMeta:
		obj = NewMetaMapEq()
	case VariantBiased:
		obj = NewBiasedMapEq()
	case VariantMultilayer:
		obj = NewRegularizedMultilayerMapEq()
	default:
		return nil, fmt.Errorf("objective: unknown variant %q", variant)
	}
	obj.Init(cfg)
	return obj, nil
}
