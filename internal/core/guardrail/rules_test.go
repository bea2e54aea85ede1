package guardrail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRefusalRulesDefaultsWhenPathEmpty(t *testing.T) {
	rules, err := LoadRefusalRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRefusalRules(), rules)
}

func TestLoadRefusalRulesFromYAMLKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `refusal_rules:
  - kind: phrase
    value: I do not have enough information
  - kind: pattern
    value: 'no (relevant )?context'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rules, err := LoadRefusalRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, RuleKindPhrase, rules[0].Kind)
	assert.Equal(t, RuleKindPattern, rules[1].Kind)

	matcher, err := NewRefusalMatcher(rules)
	require.NoError(t, err)
	assert.True(t, matcher.Matches("There is No Relevant Context for that."))
	assert.True(t, matcher.Matches("i DO NOT have enough INFORMATION"))
	assert.False(t, matcher.Matches("Interns get 10 days of leave [ID: leave_0]."))
}

func TestLoadRefusalRulesRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("refusal_rules: []\n"), 0o644))

	_, err := LoadRefusalRules(path)
	assert.Error(t, err)
}

func TestNewRefusalMatcherRejectsBadRules(t *testing.T) {
	_, err := NewRefusalMatcher([]RefusalRule{{Kind: RuleKindPattern, Value: "("}})
	assert.Error(t, err)

	_, err = NewRefusalMatcher([]RefusalRule{{Kind: "glob", Value: "x"}})
	assert.Error(t, err)

	_, err = NewRefusalMatcher([]RefusalRule{{Kind: RuleKindPhrase, Value: " "}})
	assert.Error(t, err)
}
