package validator

import "sort"

// Registry maps rule keys to rules. Rules run schema layer first.
type Registry struct {
	rules map[string]Rule
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds a rule. Registering an existing key replaces the rule in place.
func (r *Registry) Register(rule Rule) {
	key := rule.RuleKey()
	if _, ok := r.rules[key]; !ok {
		r.order = append(r.order, key)
	}
	r.rules[key] = rule
}

// All returns the registered rules by layer, then in registration order.
func (r *Registry) All() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.rules[key])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Layer() < out[j].Layer() })
	return out
}
