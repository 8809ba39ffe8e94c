/*
Package report builds fleet billing reports from stored timesheets.

PURPOSE:
  The engine computes one run over the records it is given and fails the
  whole run on the first bad record. A fleet report is coarser: each asset is
  its own run, runs execute concurrently, and an asset whose records cannot
  be billed is reported as failed and left out of the fleet totals instead of
  sinking the report.

FLOW:
  1. Load the tenant's billing config (factory parses the stored document)
  2. Load the tenant's holidays for the period
  3. Load the period's submissions and partition them by subject
  4. Run billing.Run per subject, at most MaxConcurrent at a time; every
     run gets its own copy of the config
  5. Merge per-asset totals into fleet totals and grouped totals

PARTITIONING:
  Submissions are partitioned by their dedup subject (asset ID for plant
  records). All submissions for a (date, subject) key land in the same run,
  so normalization is unaffected.

SEE ALSO:
  - billing/run.go: One calculation run
  - store/store.go: Where submissions come from
*/
package report

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/factory"
	"github.com/warp/fleet-billing/generic"
	"github.com/warp/fleet-billing/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrent bounds concurrent asset runs when the builder has no limit.
const DefaultMaxConcurrent = 4

// Request selects what to report on.
type Request struct {
	TenantID string
	Period   generic.Period
	AssetID  string           // empty for the whole fleet
	Rate     *decimal.Decimal // nil skips cost
	GroupBy  string           // see billing.KeyFuncFor
}

// AssetReport is one subject's run.
type AssetReport struct {
	AssetID     string
	Calculation *billing.Calculation // nil when the run failed
	Err         error
}

// Failed reports whether the asset's run failed.
func (a AssetReport) Failed() bool { return a.Err != nil }

// FleetReport is the outcome of a Build.
type FleetReport struct {
	TenantID      string
	Period        generic.Period
	ConfigVersion int

	Assets []AssetReport // sorted by asset ID
	Total  *billing.Totals
	Groups map[string]*billing.Totals
}

// FailedAssets lists the assets left out of the totals.
func (r *FleetReport) FailedAssets() []AssetReport {
	var failed []AssetReport
	for _, a := range r.Assets {
		if a.Failed() {
			failed = append(failed, a)
		}
	}
	return failed
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder assembles reports from a store.
type Builder struct {
	Store         store.Store
	Factory       *factory.ConfigFactory
	MaxConcurrent int
}

func NewBuilder(s store.Store, maxConcurrent int) *Builder {
	return &Builder{Store: s, Factory: factory.NewConfigFactory(), MaxConcurrent: maxConcurrent}
}

// Config loads and parses the tenant's billing config.
func (b *Builder) Config(ctx context.Context, tenantID string) (billing.BillingConfig, int, error) {
	rec, err := b.Store.GetConfig(ctx, tenantID)
	if err != nil {
		return billing.BillingConfig{}, 0, err
	}
	cfg, err := b.Factory.ParseConfig(rec.ConfigJSON)
	if err != nil {
		return billing.BillingConfig{}, 0, eris.Wrapf(err, "stored billing config v%d for tenant %q", rec.Version, tenantID)
	}
	return cfg, rec.Version, nil
}

// Build computes a report. Run-level problems (bad group_by, negative rate,
// unusable config, store failures) fail the build; a per-asset engine error
// only fails that asset.
func (b *Builder) Build(ctx context.Context, req Request) (*FleetReport, error) {
	log := zap.L().With(zap.String("tenant", req.TenantID), zap.Stringer("period", req.Period))

	if err := req.Period.Validate(); err != nil {
		return nil, err
	}
	groupBy, err := billing.KeyFuncFor(req.GroupBy)
	if err != nil {
		return nil, err
	}
	if req.Rate != nil && req.Rate.IsNegative() {
		return nil, &billing.ConfigurationError{Field: "rate", Reason: "must not be negative"}
	}

	cfg, version, err := b.Config(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	holidays, err := store.Calendar(ctx, b.Store, req.TenantID, &req.Period)
	if err != nil {
		return nil, eris.Wrap(err, "load holidays")
	}

	entries, err := b.Store.ListEntries(ctx, store.EntryFilter{
		TenantID: req.TenantID,
		Period:   &req.Period,
		Subject:  req.AssetID,
	})
	if err != nil {
		return nil, eris.Wrap(err, "load entries")
	}

	subjects, partitions := partition(entries)
	assets := make([]AssetReport, len(subjects))

	limit := b.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var failed atomic.Int64
	for i, subject := range subjects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			calc, err := billing.Run(partitions[subject], cfg.Clone(), billing.Options{
				Rate:     req.Rate,
				Holidays: holidays,
				GroupBy:  groupBy,
			})
			assets[i] = AssetReport{AssetID: subject, Calculation: calc, Err: err}
			if err != nil {
				failed.Add(1)
				log.Warn("asset excluded from report", zap.String("asset", subject), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "build report")
	}

	report := &FleetReport{
		TenantID:      req.TenantID,
		Period:        req.Period,
		ConfigVersion: version,
		Assets:        assets,
		Total:         billing.NewTotals(billing.UngroupedKey),
		Groups:        make(map[string]*billing.Totals),
	}
	for _, a := range assets {
		if a.Failed() {
			continue
		}
		report.Total.Merge(a.Calculation.Total())
		for key, t := range a.Calculation.Totals {
			if report.Groups[key] == nil {
				report.Groups[key] = billing.NewTotals(key)
			}
			report.Groups[key].Merge(t)
		}
	}

	log.Info("report built",
		zap.Int("entries", len(entries)),
		zap.Int("assets", len(assets)),
		zap.Int64("failed_assets", failed.Load()),
	)
	return report, nil
}

// partition splits submissions by subject, keeping submission order within
// each subject. Subjects are returned sorted.
func partition(entries []billing.RawEntry) ([]string, map[string][]billing.RawEntry) {
	parts := make(map[string][]billing.RawEntry)
	for _, e := range entries {
		parts[e.Subject()] = append(parts[e.Subject()], e)
	}
	subjects := make([]string, 0, len(parts))
	for s := range parts {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects, parts
}
