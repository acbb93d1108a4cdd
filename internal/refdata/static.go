// Package refdata supplies company reference data: ticker to canonical
// company name lookups used to normalize mapping records. The static table
// here stands in for the external reference-data collaborator; it is only
// ever consulted to sanity-check names, never to choose tickers.
package refdata

import (
	"strings"

	"github.com/roundlot/ticker-scout/internal/rules"
	"github.com/roundlot/ticker-scout/internal/service"
)

// StaticReferenceData is an in-memory ReferenceData implementation seeded
// from a ticker table. Safe for concurrent use; the table is immutable.
type StaticReferenceData struct {
	companies map[string]string
}

// NewStatic builds reference data from ticker -> company name pairs.
func NewStatic(companies map[string]string) *StaticReferenceData {
	table := make(map[string]string, len(companies))
	for ticker, name := range companies {
		table[strings.ToUpper(strings.TrimSpace(ticker))] = name
	}
	return &StaticReferenceData{companies: table}
}

// DefaultReferenceData returns reference data covering the seed rule set,
// so the default rules and the name validator agree out of the box.
func DefaultReferenceData() *StaticReferenceData {
	companies := make(map[string]string)
	for _, rule := range rules.DefaultRules() {
		if rule.Ticker != "" && rule.CanonicalName != "" {
			companies[rule.Ticker] = rule.CanonicalName
		}
	}
	return NewStatic(companies)
}

// LookupCompanyName returns the canonical company name for a ticker.
func (r *StaticReferenceData) LookupCompanyName(ticker string) (string, bool) {
	name, ok := r.companies[strings.ToUpper(strings.TrimSpace(ticker))]
	return name, ok
}

// ValidateTickerCompanyMatch checks a proposed company name against the
// reference table. An unknown ticker is invalid; a known ticker with a
// mismatched name is valid with a correction.
func (r *StaticReferenceData) ValidateTickerCompanyMatch(ticker, proposedName string) service.MatchResult {
	canonical, ok := r.LookupCompanyName(ticker)
	if !ok {
		return service.MatchResult{IsValid: false}
	}

	return service.MatchResult{
		IsValid:       strings.EqualFold(strings.TrimSpace(proposedName), canonical),
		CorrectedName: canonical,
	}
}
