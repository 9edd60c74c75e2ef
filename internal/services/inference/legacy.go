package inference

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"

	"github.com/dmitryikh/leaves"
)

// LegacyDecoder reads the pre-1.0 XGBoost binary format. Columns are positional.
type LegacyDecoder struct{}

func (LegacyDecoder) Name() string { return "xgboost-binary" }

func (LegacyDecoder) Decode(data []byte) (Model, error) {
	e, err := leaves.XGEnsembleFromReader(bufio.NewReader(bytes.NewReader(data)), true)
	if err != nil {
		return nil, err
	}
	return &legacyModel{ensemble: e}, nil
}

type legacyModel struct {
	ensemble *leaves.Ensemble
}

func (m *legacyModel) Predict(row []float64, _ []string) (float64, []float64, error) {
	if nf := m.ensemble.NFeatures(); len(row) < nf {
		return 0, nil, fmt.Errorf("model expects %d features, got %d", nf, len(row))
	}
	out := make([]float64, m.ensemble.NOutputGroups())
	if err := m.ensemble.Predict(row, 0, out); err != nil {
		return 0, nil, err
	}
	if len(out) == 1 {
		return out[0], nil, nil
	}
	return float64(argmax(out)), out, nil
}

func (m *legacyModel) Meta() map[string]string {
	return map[string]string{
		"num_trees":     strconv.Itoa(m.ensemble.NEstimators()),
		"num_features":  strconv.Itoa(m.ensemble.NFeatures()),
		"output_groups": strconv.Itoa(m.ensemble.NOutputGroups()),
	}
}
