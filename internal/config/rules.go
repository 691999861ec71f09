package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Rule is a directory-prefix substitution applied to style references.
type Rule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// RuleList is an ordered list of rules; order is significant (first match wins).
//
// It accepts either a sequence of {from, to} objects or a mapping of
// from -> to, in which case the document order of the mapping is kept.
type RuleList []Rule

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RuleList) UnmarshalYAML(node *yaml.Node) error {
	out := RuleList{}
	switch node.Kind {
	case yaml.SequenceNode:
		var rules []Rule
		if err := node.Decode(&rules); err != nil {
			return err
		}
		out = append(out, rules...)
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var from, to string
			if err := node.Content[i].Decode(&from); err != nil {
				return err
			}
			if err := node.Content[i+1].Decode(&to); err != nil {
				return err
			}
			out = append(out, Rule{From: from, To: to})
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return fmt.Errorf("line %d: directory_rewrite_rules must be a list or mapping", node.Line)
		}
	default:
		return fmt.Errorf("line %d: directory_rewrite_rules must be a list or mapping", node.Line)
	}
	*r = out
	return nil
}
