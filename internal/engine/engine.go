// Package engine wires the reconciliation pipeline together: raw rows are
// normalized into legs, ordered per the source's match policy, run through
// the matcher, relabeled by the strategy classifier, and summarized in a
// report.
package engine

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/roundtrip/internal/matcher"
	"github.com/eddiefleurent/roundtrip/internal/models"
	"github.com/eddiefleurent/roundtrip/internal/normalize"
	"github.com/eddiefleurent/roundtrip/internal/report"
	"github.com/eddiefleurent/roundtrip/internal/strategy"
)

// Result is the engine's output for one import: the trade array and its
// reconciliation report.
type Result struct {
	Source string         `json:"source"`
	Trades []models.Trade `json:"trades"`
	Report report.Report  `json:"report"`
}

// Import is one source's worth of pre-parsed rows awaiting reconciliation.
type Import struct {
	Profile normalize.SourceProfile
	Rows    []map[string]string
}

// Reconciler runs imports for one source profile. Each Reconcile call uses a
// fresh matcher and ledger, so a single Reconciler is safe to reuse across
// files from the same source, and independent imports never share state.
type Reconciler struct {
	profile    normalize.SourceProfile
	normalizer *normalize.Normalizer
	log        logrus.FieldLogger
}

// New returns a reconciler for the given source profile.
func New(profile normalize.SourceProfile, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		profile:    profile,
		normalizer: normalize.New(profile, log),
		log:        log,
	}
}

// Reconcile runs the full pipeline over one batch of rows.
func (r *Reconciler) Reconcile(rows []map[string]string) *Result {
	legs, stats := r.normalizer.NormalizeAll(rows)
	orderLegs(legs, r.profile.Policy)

	trades := matcher.New(r.profile.Policy, r.log).Process(legs)
	strategy.Classify(trades)

	rep := report.Build(r.profile.Name, trades, stats)
	r.log.WithFields(logrus.Fields{
		"source":  r.profile.Name,
		"rows":    rep.Rows,
		"matched": rep.Matched,
		"partial": rep.Partial,
		"open":    rep.Open,
		"pl":      rep.TotalPL.String(),
	}).Info("reconciliation complete")

	return &Result{Source: r.profile.Name, Trades: trades, Report: rep}
}

// orderLegs arranges the processing order the policy expects: chronological
// ascending for FIFO sources, the export's native order for LIFO sources
// (their same-day close-before-open listing is load-bearing and must not be
// re-sorted).
func orderLegs(legs []models.Leg, policy models.MatchPolicy) {
	if policy == models.LIFO {
		return
	}
	sort.SliceStable(legs, func(i, j int) bool {
		return legs[i].Date.Before(legs[j].Date)
	})
}

// ReconcileAll runs independent imports concurrently, one ledger per import.
// Results line up index-for-index with the imports. The only error source is
// context cancellation; reconciliation itself is total.
func ReconcileAll(ctx context.Context, imports []Import, log logrus.FieldLogger) ([]*Result, error) {
	results := make([]*Result, len(imports))

	g, ctx := errgroup.WithContext(ctx)
	for i, imp := range imports {
		i, imp := i, imp
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = New(imp.Profile, log).Reconcile(imp.Rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
