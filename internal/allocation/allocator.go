// Package allocation distributes investable capital across trade candidates
// proportional to normalized confidence.
package allocation

import (
	"log"

	"github.com/Zetan9/birzhAIbot/internal/model"
	"github.com/Zetan9/birzhAIbot/internal/signal"
)

// Config holds the allocation thresholds.
type Config struct {
	InvestFraction    float64 // share of free balance invested per cycle
	ReinforceFraction float64 // share of invest capital reserved for reinforcement
	MinInvestCapital  float64 // below this, no entries are made at all
}

// Allocation is one planned buy with its capital budget.
type Allocation struct {
	Ticker     string
	Amount     float64
	Confidence float64
	Reinforce  bool
}

// TechFilter rates a ticker before a new entry. It returns a confidence
// multiplier in (0,1] and whether the ticker passes at all. A nil filter
// accepts everything at full weight.
type TechFilter func(ticker string) (float64, bool)

// Allocator plans per-cycle capital distribution.
type Allocator struct {
	cfg Config
}

// New creates an Allocator.
func New(cfg Config) *Allocator {
	return &Allocator{cfg: cfg}
}

// Plan computes buy allocations for the candidate set given the free balance.
//
// New entries share investCapital proportional to confidence; reinforcements
// share a smaller reserved sub-budget. Candidates rejected by the technical
// filter are skipped entirely for new entries. Returns nil when the invest
// capital is below the minimum trade floor.
func (a *Allocator) Plan(set signal.CandidateSet, balance float64, filter TechFilter) []Allocation {
	investCapital := balance * a.cfg.InvestFraction
	if investCapital < a.cfg.MinInvestCapital {
		log.Printf("[allocation] invest capital %.0f below floor %.0f, skipping entries",
			investCapital, a.cfg.MinInvestCapital)
		return nil
	}

	var plan []Allocation
	plan = append(plan, a.planGroup(set.Buy, investCapital, filter, false)...)

	reinforceBudget := investCapital * a.cfg.ReinforceFraction
	plan = append(plan, a.planGroup(set.Reinforce, reinforceBudget, nil, true)...)
	return plan
}

func (a *Allocator) planGroup(candidates []model.Candidate, budget float64, filter TechFilter, reinforce bool) []Allocation {
	if len(candidates) == 0 || budget <= 0 {
		return nil
	}

	type weighted struct {
		cand model.Candidate
		adj  float64
	}
	var kept []weighted
	totalConf := 0.0
	for _, c := range candidates {
		adj := 1.0
		if filter != nil {
			mult, pass := filter(c.Ticker)
			if !pass {
				log.Printf("[allocation] %s rejected by technical filter", c.Ticker)
				continue
			}
			adj = mult
		}
		kept = append(kept, weighted{cand: c, adj: adj})
		totalConf += c.Confidence
	}
	if totalConf == 0 {
		return nil
	}

	out := make([]Allocation, 0, len(kept))
	for _, w := range kept {
		share := w.cand.Confidence / totalConf
		out = append(out, Allocation{
			Ticker:     w.cand.Ticker,
			Amount:     budget * share * w.adj,
			Confidence: w.cand.Confidence,
			Reinforce:  reinforce,
		})
	}
	return out
}
