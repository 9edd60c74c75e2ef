package inference

import (
	"errors"
	"fmt"
)

// Model scores a single row.
type Model interface {
	// Predict returns the model output and, for classifiers, the class probabilities.
	Predict(row []float64, columns []string) (value float64, probs []float64, err error)
	// Meta describes the loaded model for diagnostics.
	Meta() map[string]string
}

// Decoder turns serialized model bytes into a Model.
type Decoder interface {
	Name() string
	Decode(data []byte) (Model, error)
}

// DefaultDecoders is the order formats are tried in.
func DefaultDecoders() []Decoder {
	return []Decoder{JSONDecoder{}, LegacyDecoder{}}
}

// decode tries each decoder in turn and returns the first success.
func decode(decoders []Decoder, data []byte) (Model, string, error) {
	if len(decoders) == 0 {
		return nil, "", errors.New("no model decoders configured")
	}
	var errs []error
	for _, d := range decoders {
		m, err := d.Decode(data)
		if err == nil {
			return m, d.Name(), nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
	}
	return nil, "", errors.Join(errs...)
}
