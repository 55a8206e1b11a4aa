// Package veto suppresses trade candidates that are too correlated with each
// other or with positions already held, so the portfolio never doubles up on
// one underlying move.
package veto

import (
	"fmt"
	"math"
	"sort"

	"Aegis/internal/domain/models"
	"Aegis/internal/stats"
)

const (
	// correlationThreshold above which a pair is one cluster.
	correlationThreshold = 0.85

	// minHistory is the exclusive lower bound on usable history length.
	minHistory = 10

	// maxWindow caps the common correlation window.
	maxWindow = 100
)

type series struct {
	symbol    string
	prices    []float64
	candidate *models.Candidate // nil for held positions
}

// Engine applies pairwise correlation vetoes. Stateless; safe to share.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// ApplyVeto inspects every unvetoed pair whose |correlation| exceeds 0.85
// over a common truncated window: between two candidates the lower
// confidence+|velocity| score is vetoed (ties keep the first in input
// order); a candidate correlated with a held position is always the one
// vetoed; two held positions are left alone. Candidates are mutated in
// place. Deterministic for identical inputs.
func (e *Engine) ApplyVeto(candidates []*models.Candidate, portfolio map[string][]float64) []*models.Candidate {
	all := collectSeries(candidates, portfolio)
	if len(all) < 2 {
		return candidates
	}

	window := maxWindow
	for _, s := range all {
		if len(s.prices) < window {
			window = len(s.prices)
		}
	}
	for i := range all {
		all[i].prices = all[i].prices[len(all[i].prices)-window:]
	}

	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if a.candidate == nil && b.candidate == nil {
				continue
			}
			if (a.candidate != nil && a.candidate.Vetoed()) || (b.candidate != nil && b.candidate.Vetoed()) {
				continue
			}
			corr, ok := stats.Pearson(a.prices, b.prices)
			if !ok || math.Abs(corr) <= correlationThreshold {
				continue
			}
			e.resolvePair(a, b, corr)
		}
	}
	return candidates
}

func (e *Engine) resolvePair(a, b series, corr float64) {
	switch {
	case a.candidate != nil && b.candidate != nil:
		// Lower score loses; an exact tie keeps the earlier candidate.
		loser := b
		if score(b.candidate) > score(a.candidate) {
			loser = a
		}
		winner := a
		if loser.symbol == a.symbol {
			winner = b
		}
		loser.candidate.Veto(fmt.Sprintf(
			"cluster veto: |corr(%s,%s)|=%.3f > %.2f, lower score than %s",
			loser.symbol, winner.symbol, math.Abs(corr), correlationThreshold, winner.symbol))
	case a.candidate != nil:
		a.candidate.Veto(fmt.Sprintf(
			"cluster veto: |corr(%s,held %s)|=%.3f > %.2f",
			a.symbol, b.symbol, math.Abs(corr), correlationThreshold))
	default:
		b.candidate.Veto(fmt.Sprintf(
			"cluster veto: |corr(%s,held %s)|=%.3f > %.2f",
			b.symbol, a.symbol, math.Abs(corr), correlationThreshold))
	}
}

func score(c *models.Candidate) float64 {
	return c.Confidence + math.Abs(c.Velocity)
}

// collectSeries gathers qualifying price series: candidates in input order
// first, then held positions in symbol order for determinism. A held symbol
// that is also a candidate is not duplicated.
func collectSeries(candidates []*models.Candidate, portfolio map[string][]float64) []series {
	var out []series
	seen := make(map[string]bool)
	for _, c := range candidates {
		if len(c.History) <= minHistory {
			continue
		}
		out = append(out, series{symbol: c.Symbol, prices: c.History, candidate: c})
		seen[c.Symbol] = true
	}

	held := make([]string, 0, len(portfolio))
	for sym := range portfolio {
		held = append(held, sym)
	}
	sort.Strings(held)
	for _, sym := range held {
		if seen[sym] || len(portfolio[sym]) <= minHistory {
			continue
		}
		out = append(out, series{symbol: sym, prices: portfolio[sym]})
	}
	return out
}
