// Package telemetry defines the live sensor reading published over MQTT.
package telemetry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Reading is one sample from an indoor or outdoor sensor. Values is keyed by
// the dataset's numeric column names.
type Reading struct {
	Dataset   string             `json:"dataset" validate:"required"`
	Timestamp time.Time          `json:"timestamp" validate:"required"`
	Values    map[string]float64 `json:"values" validate:"required,min=1,dive,keys,required,endkeys"`
	Cooking   *bool              `json:"cooking,omitempty"`
	Sequence  *int               `json:"sequence,omitempty" validate:"omitempty,min=0"`
}

func (r Reading) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed on %q", fe.Namespace(), fe.Tag())
		}
		return err
	}
	for k, v := range r.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value %q is not a finite number", k)
		}
	}
	return nil
}
