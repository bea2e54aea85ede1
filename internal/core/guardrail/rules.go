package guardrail

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type RuleKind string

const (
	RuleKindPhrase  RuleKind = "phrase"
	RuleKindPattern RuleKind = "pattern"
)

// RefusalRule recognizes a model-issued refusal inside an answer.
type RefusalRule struct {
	Kind  RuleKind `yaml:"kind"`
	Value string   `yaml:"value"`
}

// DefaultRefusalRules are the phrasings the generation prompt asks the model to use.
func DefaultRefusalRules() []RefusalRule {
	return []RefusalRule{
		{Kind: RuleKindPhrase, Value: "i do not have enough information"},
		{Kind: RuleKindPhrase, Value: "not provided in the context"},
		{Kind: RuleKindPhrase, Value: "cannot be determined from the context"},
		{Kind: RuleKindPhrase, Value: "no information is available"},
	}
}

// RefusalMatcher evaluates an ordered rule set. Matching is case-insensitive;
// phrases match as substrings.
type RefusalMatcher struct {
	phrases  []string
	patterns []*regexp.Regexp
}

func NewRefusalMatcher(rules []RefusalRule) (*RefusalMatcher, error) {
	m := &RefusalMatcher{}
	for i, rule := range rules {
		value := strings.TrimSpace(rule.Value)
		if value == "" {
			return nil, fmt.Errorf("refusal rule %d: empty value", i)
		}
		switch rule.Kind {
		case RuleKindPhrase, "":
			m.phrases = append(m.phrases, strings.ToLower(value))
		case RuleKindPattern:
			re, err := regexp.Compile("(?i)" + value)
			if err != nil {
				return nil, fmt.Errorf("refusal rule %d: compile pattern: %w", i, err)
			}
			m.patterns = append(m.patterns, re)
		default:
			return nil, fmt.Errorf("refusal rule %d: unknown kind %q", i, rule.Kind)
		}
	}
	return m, nil
}

// MustDefaultRefusalMatcher panics only if the built-in rules are broken.
func MustDefaultRefusalMatcher() *RefusalMatcher {
	m, err := NewRefusalMatcher(DefaultRefusalRules())
	if err != nil {
		panic(err)
	}
	return m
}

func (m *RefusalMatcher) Matches(answer string) bool {
	if m == nil {
		return false
	}
	lower := strings.ToLower(answer)
	for _, phrase := range m.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	for _, re := range m.patterns {
		if re.MatchString(answer) {
			return true
		}
	}
	return false
}

type rulesFile struct {
	Rules []RefusalRule `yaml:"refusal_rules"`
}

// LoadRefusalRules reads an ordered rule list from a YAML file of the form:
//
//	refusal_rules:
//	  - kind: phrase
//	    value: i do not have enough information
//	  - kind: pattern
//	    value: 'no (relevant )?context'
//
// An empty path yields the default rules.
func LoadRefusalRules(path string) ([]RefusalRule, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRefusalRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read refusal rules: %w", err)
	}
	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse refusal rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("refusal rules file %s defines no rules", path)
	}
	return file.Rules, nil
}
