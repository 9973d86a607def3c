// Package anomaly holds the pure decision logic that inspects a checkpoint
// against policy thresholds. It performs no I/O and never returns an error:
// any batch/checkpoint pair, including one with no temperature reading,
// produces a verdict.
package anomaly

import (
	"fmt"

	"github.com/foodtrace/backend/internal/alert"
	"github.com/foodtrace/backend/internal/batch"
	"github.com/foodtrace/backend/internal/checkpoint"
)

// TemperatureThresholdCelsius is the safe cold-chain ceiling. Readings must be
// strictly above it to trigger an anomaly; a reading exactly at the threshold
// passes.
const TemperatureThresholdCelsius = 10.0

// TypeTemperatureAnomaly is the display name carried on temperature verdicts.
const TypeTemperatureAnomaly = "Temperature Anomaly"

// Verdict is the outcome of evaluating one checkpoint.
type Verdict struct {
	Detected bool
	Type     string
	Details  string
	Severity string
}

// Evaluate inspects a checkpoint's readings against policy. The batch is part
// of the contract so future rules can consider product type or expiry, but the
// current policy is a single fixed temperature threshold with no tiering.
func Evaluate(record checkpoint.Checkpoint, _ batch.Batch) Verdict {
	if record.Temperature == nil {
		return Verdict{Severity: alert.SeverityMedium}
	}

	reading := *record.Temperature
	if reading > TemperatureThresholdCelsius {
		return Verdict{
			Detected: true,
			Type:     TypeTemperatureAnomaly,
			Details:  fmt.Sprintf("Temperature %v°C exceeds safe threshold of 10°C.", reading),
			Severity: alert.SeverityMedium,
		}
	}

	return Verdict{Severity: alert.SeverityMedium}
}
