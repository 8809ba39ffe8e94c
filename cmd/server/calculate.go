package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/fleet-billing/api"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/factory"
	"github.com/warp/fleet-billing/generic"
)

var (
	calcEntriesPath string
	calcConfigPath  string
	calcPreset      string
	calcRate        float64
	calcGroupBy     string
	calcHolidays    []string
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Bill a file of timesheet records and print the result as JSON",
	Long: `Reads a JSON array of timesheet records and a billing config document
(YAML or JSON), runs the engine once and prints results and totals. Nothing
is stored. Any bad record fails the whole run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := readEntries(calcEntriesPath)
		if err != nil {
			return err
		}

		bc, err := loadBillingConfig(calcConfigPath, calcPreset)
		if err != nil {
			return err
		}

		groupBy, err := billing.KeyFuncFor(calcGroupBy)
		if err != nil {
			return err
		}

		holidays := make([]generic.Holiday, 0, len(calcHolidays))
		for _, d := range calcHolidays {
			day, err := generic.ParseDay(d)
			if err != nil {
				return eris.Wrapf(err, "--holiday %s", d)
			}
			holidays = append(holidays, generic.Holiday{Date: day})
		}

		rate := calcRate
		if !cmd.Flags().Changed("rate") && cfg != nil {
			rate = cfg.Billing.Rate
		}
		opts := billing.Options{Holidays: generic.NewHolidaySet(holidays), GroupBy: groupBy}
		if rate != 0 {
			d := decimal.NewFromFloat(rate)
			opts.Rate = &d
		}

		calc, err := billing.Run(entries, bc, opts)
		if err != nil {
			return eris.Wrap(err, "calculate")
		}

		zap.L().Debug("calculation complete",
			zap.Int("submitted", len(entries)),
			zap.Int("effective", len(calc.Effective)),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(api.NewCalculationResponse(calc))
	},
}

func init() {
	calculateCmd.Flags().StringVar(&calcEntriesPath, "entries", "", "JSON file with an array of timesheet records (required)")
	calculateCmd.Flags().StringVar(&calcConfigPath, "config", "", "billing config document, YAML or JSON")
	calculateCmd.Flags().StringVar(&calcPreset, "preset", "", "billing config preset when --config is not given (standard, plant_hire)")
	calculateCmd.Flags().Float64Var(&calcRate, "rate", 0, "hourly rate for cost (default from config, 0 skips cost)")
	calculateCmd.Flags().StringVar(&calcGroupBy, "group-by", "", "grouping: asset, operator, day, week, month")
	calculateCmd.Flags().StringSliceVar(&calcHolidays, "holiday", nil, "public holiday date YYYY-MM-DD (repeatable)")
	_ = calculateCmd.MarkFlagRequired("entries")
	rootCmd.AddCommand(calculateCmd)
}

func readEntries(path string) ([]billing.RawEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open entries file")
	}
	defer f.Close()

	var entries []billing.RawEntry
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return nil, eris.Wrapf(err, "decode entries file %s", path)
	}
	return entries, nil
}

func loadBillingConfig(path, preset string) (billing.BillingConfig, error) {
	f := factory.NewConfigFactory()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return billing.BillingConfig{}, eris.Wrap(err, "open config file")
		}
		defer file.Close()

		bc, err := f.ParseConfigReader(file)
		if err != nil {
			return billing.BillingConfig{}, eris.Wrapf(err, "config file %s", path)
		}
		return bc, nil
	}

	if preset == "" && cfg != nil {
		preset = cfg.Billing.Preset
	}
	doc, ok := factory.Presets[preset]
	if !ok {
		return billing.BillingConfig{}, eris.Errorf("unknown billing preset %q", preset)
	}
	return f.ParseConfig(doc)
}
