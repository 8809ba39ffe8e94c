/*
Package factory provides YAML/JSON to Go billing config conversion.

PURPOSE:
  Converts billing config documents into billing.BillingConfig values. This
  enables billing setup without code changes: the office defines day type
  rules in YAML (or JSON, which is YAML), and the factory fills in defaults,
  validates, and produces the decimal-typed config the engine runs on.

DOCUMENT SCHEMA:
  weekday:
    enabled: true
    billing_method: per_hour
    rate_multiplier: 1.0
  saturday:
    enabled: true
    billing_method: minimum_billing
    min_hours: 8
    rate_multiplier: 1.5
  sunday: { ... }
  public_holiday: { ... }
  rain_days:
    enabled: true
    min_hours: 4.5
    threshold_hours: 1
  breakdown:
    enabled: false

DEFAULTS:
  - An omitted day type is disabled (bills actual hours at 1.0)
  - An omitted billing_method is per_hour
  - An omitted rate_multiplier is 1.0
  - Omitted rain_days / breakdown sections are disabled
  - Unknown keys are rejected

USAGE:
  f := factory.NewConfigFactory()
  cfg, err := f.ParseConfig(factory.PlantHireConfigJSON)
  calc, err := billing.Run(entries, cfg, billing.Options{})

SEE ALSO:
  - billing/policy.go: BillingConfig and its validation
  - presets.go: Ready-made documents
*/
package factory

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/warp/fleet-billing/billing"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// ConfigJSON is the document representation of a billing config.
type ConfigJSON struct {
	Weekday       *DayTypeJSON   `json:"weekday,omitempty" yaml:"weekday,omitempty"`
	Saturday      *DayTypeJSON   `json:"saturday,omitempty" yaml:"saturday,omitempty"`
	Sunday        *DayTypeJSON   `json:"sunday,omitempty" yaml:"sunday,omitempty"`
	PublicHoliday *DayTypeJSON   `json:"public_holiday,omitempty" yaml:"public_holiday,omitempty"`
	RainDays      *RainDayJSON   `json:"rain_days,omitempty" yaml:"rain_days,omitempty"`
	Breakdown     *BreakdownJSON `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
}

// DayTypeJSON configures one ordinary day type.
type DayTypeJSON struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	BillingMethod  string   `json:"billing_method,omitempty" yaml:"billing_method,omitempty"`
	MinHours       *float64 `json:"min_hours,omitempty" yaml:"min_hours,omitempty"`
	RateMultiplier *float64 `json:"rate_multiplier,omitempty" yaml:"rate_multiplier,omitempty"`
}

// RainDayJSON configures rain-day minimum billing.
type RainDayJSON struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	MinHours       float64 `json:"min_hours" yaml:"min_hours"`
	ThresholdHours float64 `json:"threshold_hours" yaml:"threshold_hours"`
}

// BreakdownJSON decides whether breakdown days are billed.
type BreakdownJSON struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts billing config documents to billing.BillingConfig.
type ConfigFactory struct{}

// NewConfigFactory creates a new config factory.
func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseConfig parses a YAML or JSON document into a validated BillingConfig.
// An empty document yields the all-defaults config.
func (f *ConfigFactory) ParseConfig(doc string) (billing.BillingConfig, error) {
	var cj ConfigJSON
	dec := yaml.NewDecoder(strings.NewReader(doc))
	dec.KnownFields(true)
	if err := dec.Decode(&cj); err != nil && !errors.Is(err, io.EOF) {
		return billing.BillingConfig{}, &billing.ConfigurationError{Field: "document", Reason: err.Error()}
	}
	return f.FromJSON(cj)
}

// ParseConfigReader reads a whole document from r and parses it.
func (f *ConfigFactory) ParseConfigReader(r io.Reader) (billing.BillingConfig, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return billing.BillingConfig{}, eris.Wrap(err, "failed to read billing config")
	}
	return f.ParseConfig(string(b))
}

// FromJSON converts ConfigJSON to a validated billing.BillingConfig.
func (f *ConfigFactory) FromJSON(cj ConfigJSON) (billing.BillingConfig, error) {
	cfg := billing.BillingConfig{}

	sections := []struct {
		dt  billing.DayType
		in  *DayTypeJSON
		out **billing.DayTypeConfig
	}{
		{billing.DayWeekday, cj.Weekday, &cfg.Weekday},
		{billing.DaySaturday, cj.Saturday, &cfg.Saturday},
		{billing.DaySunday, cj.Sunday, &cfg.Sunday},
		{billing.DayPublicHoliday, cj.PublicHoliday, &cfg.PublicHoliday},
	}
	for _, s := range sections {
		dc, err := parseDayType(s.dt, s.in)
		if err != nil {
			return billing.BillingConfig{}, err
		}
		*s.out = dc
	}

	if cj.RainDays != nil {
		min, err := finite(billing.DayRain, "min_hours", cj.RainDays.MinHours)
		if err != nil {
			return billing.BillingConfig{}, err
		}
		threshold, err := finite(billing.DayRain, "threshold_hours", cj.RainDays.ThresholdHours)
		if err != nil {
			return billing.BillingConfig{}, err
		}
		cfg.RainDays = billing.RainDayConfig{
			Enabled:        cj.RainDays.Enabled,
			MinHours:       min,
			ThresholdHours: threshold,
		}
	}
	if cj.Breakdown != nil {
		cfg.Breakdown.Enabled = cj.Breakdown.Enabled
	}

	if err := cfg.Validate(); err != nil {
		return billing.BillingConfig{}, err
	}
	return cfg, nil
}

// ToJSON converts a BillingConfig to its document representation.
func (f *ConfigFactory) ToJSON(cfg billing.BillingConfig) ConfigJSON {
	return ConfigJSON{
		Weekday:       toDayTypeJSON(cfg.Weekday),
		Saturday:      toDayTypeJSON(cfg.Saturday),
		Sunday:        toDayTypeJSON(cfg.Sunday),
		PublicHoliday: toDayTypeJSON(cfg.PublicHoliday),
		RainDays: &RainDayJSON{
			Enabled:        cfg.RainDays.Enabled,
			MinHours:       cfg.RainDays.MinHours.InexactFloat64(),
			ThresholdHours: cfg.RainDays.ThresholdHours.InexactFloat64(),
		},
		Breakdown: &BreakdownJSON{Enabled: cfg.Breakdown.Enabled},
	}
}

// Marshal renders a BillingConfig as a JSON document that ParseConfig reads back.
func (f *ConfigFactory) Marshal(cfg billing.BillingConfig) (string, error) {
	b, err := json.Marshal(f.ToJSON(cfg))
	if err != nil {
		return "", eris.Wrap(err, "failed to marshal billing config")
	}
	return string(b), nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDayType(dt billing.DayType, dj *DayTypeJSON) (*billing.DayTypeConfig, error) {
	if dj == nil {
		return &billing.DayTypeConfig{Enabled: false, BillingMethod: billing.PerHour, RateMultiplier: decimal.NewFromInt(1)}, nil
	}

	dc := &billing.DayTypeConfig{
		Enabled:        dj.Enabled,
		BillingMethod:  billing.BillingMethod(dj.BillingMethod),
		RateMultiplier: decimal.NewFromInt(1),
	}
	if dc.BillingMethod == "" {
		dc.BillingMethod = billing.PerHour
	}
	if dj.RateMultiplier != nil {
		m, err := finite(dt, "rate_multiplier", *dj.RateMultiplier)
		if err != nil {
			return nil, err
		}
		dc.RateMultiplier = m
	}
	if dj.MinHours != nil {
		min, err := finite(dt, "min_hours", *dj.MinHours)
		if err != nil {
			return nil, err
		}
		dc.MinHours = &min
	}
	return dc, nil
}

// finite converts a document number, rejecting .nan and .inf which YAML allows.
func finite(dt billing.DayType, field string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, &billing.ConfigurationError{DayType: dt, Field: field, Reason: "must be a finite number"}
	}
	return decimal.NewFromFloat(v), nil
}

func toDayTypeJSON(dc *billing.DayTypeConfig) *DayTypeJSON {
	if dc == nil {
		return nil
	}
	m := dc.RateMultiplier.InexactFloat64()
	dj := &DayTypeJSON{
		Enabled:        dc.Enabled,
		BillingMethod:  string(dc.BillingMethod),
		RateMultiplier: &m,
	}
	if dc.MinHours != nil {
		min := dc.MinHours.InexactFloat64()
		dj.MinHours = &min
	}
	return dj
}
