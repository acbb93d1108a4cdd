// Package rules implements the rule-based merchant classifier. An Engine
// holds an immutable rule set and maps normalized merchant names to
// classification candidates via exact, pattern, and fuzzy matching.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roundlot/ticker-scout/internal/model"
)

// ExactMatchConfidence is the fixed confidence assigned to exact index hits.
const ExactMatchConfidence = 95.0

// DefaultFuzzyFloor is the minimum similarity for a fuzzy candidate.
const DefaultFuzzyFloor = 0.60

// maxFuzzyConfidence caps what a fuzzy match can score, keeping fuzzy
// candidates below the auto-apply threshold.
const maxFuzzyConfidence = 75.0

// Engine matches normalized merchant names against an ordered rule set.
// It is safe for concurrent use; the rule set is immutable after construction.
type Engine struct {
	exact      map[string]*model.Rule
	patterns   []model.Rule
	dictionary []dictEntry
	fuzzyFloor float64
}

// dictEntry is one canonical merchant name prepared for fuzzy comparison.
type dictEntry struct {
	normalized string
	tokens     []string
	rule       *model.Rule
}

// Option configures an Engine.
type Option func(*Engine)

// WithFuzzyFloor overrides the minimum fuzzy similarity.
func WithFuzzyFloor(floor float64) Option {
	return func(e *Engine) {
		e.fuzzyFloor = floor
	}
}

// NewEngine builds an Engine from a rule set. Exact rules go into a hash
// index keyed by normalized pattern; prefix and substring rules are ordered
// by priority (stable, so registration order breaks ties); every rule's
// canonical name feeds the fuzzy dictionary.
func NewEngine(ruleSet []model.Rule, opts ...Option) *Engine {
	e := &Engine{
		exact:      make(map[string]*model.Rule),
		fuzzyFloor: DefaultFuzzyFloor,
	}
	for _, opt := range opts {
		opt(e)
	}

	for i := range ruleSet {
		rule := ruleSet[i]
		switch rule.MatchType {
		case model.MatchExact:
			key := Normalize(rule.Pattern)
			if key == "" {
				continue
			}
			// First registration wins on duplicate patterns.
			if _, exists := e.exact[key]; !exists {
				e.exact[key] = &ruleSet[i]
			}
		case model.MatchPrefix, model.MatchSubstring:
			e.patterns = append(e.patterns, rule)
		case model.MatchFuzzy:
			// Fuzzy rules only contribute to the dictionary.
		}

		if name := Normalize(rule.CanonicalName); name != "" {
			e.dictionary = append(e.dictionary, dictEntry{
				normalized: name,
				tokens:     strings.Fields(name),
				rule:       &ruleSet[i],
			})
		}
	}

	// Prefix beats substring regardless of numeric priority; within a tier,
	// lower priority value wins. SliceStable keeps registration order for ties.
	sort.SliceStable(e.patterns, func(i, j int) bool {
		if e.patterns[i].MatchType.Tier() != e.patterns[j].MatchType.Tier() {
			return e.patterns[i].MatchType.Tier() < e.patterns[j].MatchType.Tier()
		}
		return e.patterns[i].Priority < e.patterns[j].Priority
	})

	return e
}

// RuleCount returns the number of rules indexed by the engine.
func (e *Engine) RuleCount() int {
	return len(e.exact) + len(e.patterns)
}

// Classify matches a merchant name against the rule set and returns a
// candidate, or nil when nothing clears the fuzzy floor. It is a pure
// function over the immutable rule set: the same input always produces the
// same candidate.
func (e *Engine) Classify(merchantName string) *model.ClassificationCandidate {
	name := Normalize(merchantName)
	if name == "" {
		return nil
	}

	if rule, ok := e.exact[name]; ok {
		return &model.ClassificationCandidate{
			Ticker:        rule.Ticker,
			Category:      rule.Category,
			Confidence:    ExactMatchConfidence,
			Method:        model.MethodExact,
			Evidence:      fmt.Sprintf("exact match on %q", rule.Pattern),
			MatchedRuleID: rule.ID,
		}
	}

	for i := range e.patterns {
		rule := &e.patterns[i]
		pattern := Normalize(rule.Pattern)
		if pattern == "" {
			continue
		}

		var matched bool
		switch rule.MatchType {
		case model.MatchPrefix:
			matched = strings.HasPrefix(name, pattern)
		case model.MatchSubstring:
			matched = strings.Contains(name, pattern)
		}
		if !matched {
			continue
		}

		return &model.ClassificationCandidate{
			Ticker:        rule.Ticker,
			Category:      rule.Category,
			Confidence:    rule.BaseConfidence,
			Method:        model.MethodPattern,
			Evidence:      fmt.Sprintf("%s match on %q", rule.MatchType, rule.Pattern),
			MatchedRuleID: rule.ID,
		}
	}

	return e.classifyFuzzy(name)
}

// classifyFuzzy compares the normalized name against the canonical merchant
// dictionary and emits a low-confidence candidate when the best similarity
// clears the floor.
func (e *Engine) classifyFuzzy(name string) *model.ClassificationCandidate {
	tokens := strings.Fields(name)

	var best *dictEntry
	var bestScore float64
	for i := range e.dictionary {
		entry := &e.dictionary[i]
		score := Similarity(name, tokens, entry.normalized, entry.tokens)
		if score > bestScore {
			bestScore = score
			best = entry
		}
	}

	if best == nil || bestScore < e.fuzzyFloor {
		return nil
	}

	return &model.ClassificationCandidate{
		Ticker:        best.rule.Ticker,
		Category:      best.rule.Category,
		Confidence:    bestScore * maxFuzzyConfidence,
		Method:        model.MethodFuzzy,
		Evidence:      fmt.Sprintf("fuzzy match on %q (similarity %.2f)", best.rule.CanonicalName, bestScore),
		MatchedRuleID: best.rule.ID,
	}
}
