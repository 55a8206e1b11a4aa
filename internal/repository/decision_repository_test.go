package repository

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDecisionQueryWithSymbol(t *testing.T) {
	from := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	q, args := buildDecisionQuery("aegis.decisions", "BTC", from, to, 20)
	if !strings.Contains(q, "symbol = ?") {
		t.Fatalf("symbol filter missing: %s", q)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args (symbol, from, to, limit), got %d: %v", len(args), args)
	}
	if args[0] != "BTC" || args[3] != 20 {
		t.Fatalf("arg order mismatch: %v", args)
	}
}

func TestBuildDecisionQueryAllSymbols(t *testing.T) {
	from := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	q, args := buildDecisionQuery("aegis.decisions", "", from, to, 50)
	if strings.Contains(q, "symbol = ?") {
		t.Fatalf("empty symbol must not filter by symbol: %s", q)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args (from, to, limit), got %d: %v", len(args), args)
	}
	if args[0] != from || args[2] != 50 {
		t.Fatalf("arg order mismatch: %v", args)
	}
	if !strings.Contains(q, "ORDER BY ts DESC LIMIT ?") {
		t.Fatalf("latest-first ordering missing: %s", q)
	}
}
