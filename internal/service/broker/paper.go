// Package broker provides the account-state source the governor sizes
// against. The paper implementation tracks NAV from marked decisions; a real
// brokerage adapter satisfies the same interface.
package broker

import (
	"context"
	"sync"

	"Aegis/internal/domain/models"
)

// PaperAccount is an in-memory account used when no brokerage is wired.
type PaperAccount struct {
	mu        sync.RWMutex
	starting  float64
	nav       float64
	buying    float64
	pdtExempt bool
	held      map[string][]float64
}

func NewPaperAccount(startingCapital float64, pdtExempt bool) *PaperAccount {
	return &PaperAccount{
		starting:  startingCapital,
		nav:       startingCapital,
		buying:    startingCapital,
		pdtExempt: pdtExempt,
		held:      make(map[string][]float64),
	}
}

// Account implements service.AccountSource.
func (p *PaperAccount) Account(context.Context) (models.AccountState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	held := make(map[string][]float64, len(p.held))
	for sym, h := range p.held {
		held[sym] = append([]float64(nil), h...)
	}
	return models.AccountState{
		StartingCapital: p.starting,
		NAV:             p.nav,
		BuyingPower:     p.buying,
		PDTExempt:       p.pdtExempt,
		HeldHistories:   held,
	}, nil
}

// MarkToMarket updates NAV and buying power from the latest valuation.
func (p *PaperAccount) MarkToMarket(nav, buyingPower float64) {
	p.mu.Lock()
	p.nav = nav
	p.buying = buyingPower
	p.mu.Unlock()
}

// SetHeldHistory replaces the tracked price history of a held position.
// An empty history removes the position.
func (p *PaperAccount) SetHeldHistory(symbol string, history []float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(history) == 0 {
		delete(p.held, symbol)
		return
	}
	p.held[symbol] = append([]float64(nil), history...)
}
