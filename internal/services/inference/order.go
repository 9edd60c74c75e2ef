package inference

import "strconv"

// trainingFeatureOrder selects and orders the builder's features (1-based) into the
// columns the model was trained on. It indexes features.Names(), so any change to the
// builder's order must update this table and bump trainingFeatureOrderVersion.
var trainingFeatureOrder = [...]int{12, 10, 2, 14, 19, 17, 1, 5, 9, 11, 18, 16, 8, 3, 15, 4, 7, 13, 6}

const trainingFeatureOrderVersion = "v1"

// NumColumns is the number of model input columns.
const NumColumns = len(trainingFeatureOrder)

var columnNames = func() []string {
	out := make([]string, NumColumns)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}()

// Reorder maps a feature vector to model columns labelled "1".."19".
// Vectors shorter than the highest referenced index are padded with zeros.
func Reorder(features []float64) ([]float64, []string) {
	maxIdx := 0
	for _, idx := range trainingFeatureOrder {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	padded := features
	if len(features) < maxIdx {
		padded = make([]float64, maxIdx)
		copy(padded, features)
	}

	row := make([]float64, NumColumns)
	for j, idx := range trainingFeatureOrder {
		row[j] = padded[idx-1]
	}
	names := make([]string, NumColumns)
	copy(names, columnNames)
	return row, names
}
