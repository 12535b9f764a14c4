package metadata

import (
	"github.com/agentstation/utc"
	"github.com/spf13/cast"

	"github.com/agentstation/metalayer/pkg/errors"
)

// MeasurementData is one observation of a quantity.
type MeasurementData struct {
	Quantity string   `yaml:"quantity"`
	Value    float64  `yaml:"value"`
	Weight   float64  `yaml:"weight"`
	TakenAt  utc.Time `yaml:"taken_at"`
}

// NewMeasurementData coerces value to a float. Both quantity and value
// are required. The weight defaults to 1 and the time to now.
func NewMeasurementData(quantity string, value any, weight float64, takenAt *utc.Time) (*MeasurementData, error) {
	if quantity == "" {
		return nil, errors.NewValidationError("quantity", nil, "quantity measured is required")
	}
	if value == nil {
		return nil, errors.NewValidationError("value", nil, "measurement value is required")
	}
	v, err := cast.ToFloat64E(value)
	if err != nil {
		return nil, errors.NewValidationError("value", value, err.Error())
	}
	if weight == 0 {
		weight = 1
	}
	m := &MeasurementData{Quantity: quantity, Value: v, Weight: weight}
	if takenAt != nil {
		m.TakenAt = *takenAt
	} else {
		m.TakenAt = utc.Now()
	}
	return m, nil
}
