package factory

// StandardConfigJSON bills every day type per hour at 1.0. Same as
// billing.StandardConfig.
const StandardConfigJSON = `{
  "weekday":        {"enabled": true, "billing_method": "per_hour", "rate_multiplier": 1.0},
  "saturday":       {"enabled": true, "billing_method": "per_hour", "rate_multiplier": 1.0},
  "sunday":         {"enabled": true, "billing_method": "per_hour", "rate_multiplier": 1.0},
  "public_holiday": {"enabled": true, "billing_method": "per_hour", "rate_multiplier": 1.0},
  "rain_days":      {"enabled": false, "min_hours": 0, "threshold_hours": 0},
  "breakdown":      {"enabled": false}
}`

// PlantHireConfigJSON is the typical plant-hire contract. Same as
// billing.PlantHireConfig.
const PlantHireConfigJSON = `{
  "weekday":        {"enabled": true, "billing_method": "per_hour", "rate_multiplier": 1.0},
  "saturday":       {"enabled": true, "billing_method": "minimum_billing", "min_hours": 8, "rate_multiplier": 1.5},
  "sunday":         {"enabled": true, "billing_method": "minimum_billing", "min_hours": 8, "rate_multiplier": 2.0},
  "public_holiday": {"enabled": true, "billing_method": "minimum_billing", "min_hours": 8, "rate_multiplier": 2.0},
  "rain_days":      {"enabled": true, "min_hours": 4.5, "threshold_hours": 1},
  "breakdown":      {"enabled": false}
}`

// PlantHireConfigYAML is PlantHireConfigJSON written the way operators keep
// it on disk for the calculate command.
const PlantHireConfigYAML = `# Plant hire: weekend and holiday premiums, rain-day cover
weekday:
  enabled: true
  billing_method: per_hour
  rate_multiplier: 1.0
saturday:
  enabled: true
  billing_method: minimum_billing
  min_hours: 8
  rate_multiplier: 1.5
sunday:
  enabled: true
  billing_method: minimum_billing
  min_hours: 8
  rate_multiplier: 2.0
public_holiday:
  enabled: true
  billing_method: minimum_billing
  min_hours: 8
  rate_multiplier: 2.0
rain_days:
  enabled: true
  min_hours: 4.5
  threshold_hours: 1
breakdown:
  enabled: false
`

// Presets maps preset names to documents.
var Presets = map[string]string{
	"standard":   StandardConfigJSON,
	"plant_hire": PlantHireConfigJSON,
}
