package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// JSONDecoder reads models written by XGBoost's Booster.save_model("*.json").
type JSONDecoder struct{}

func (JSONDecoder) Name() string { return "xgboost-json" }

type xgbDocument struct {
	Learner *struct {
		FeatureNames    []string    `json:"feature_names"`
		GradientBooster *xgbBooster `json:"gradient_booster"`
		ModelParam      struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
	Version []int `json:"version"`
}

// xgbBooster covers both gbtree and dart, which nests a gbtree.
type xgbBooster struct {
	Name  string `json:"name"`
	Model *struct {
		TreeInfo []int     `json:"tree_info"`
		Trees    []xgbTree `json:"trees"`
	} `json:"model"`
	GBTree     *xgbBooster `json:"gbtree"`
	WeightDrop []float64   `json:"weight_drop"`
}

type xgbTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	DefaultLeft     flexBools `json:"default_left"`
	SplitType       []int     `json:"split_type"`
}

// flexBools accepts both [true,false] and [1,0]; XGBoost changed the encoding in 2.0.
type flexBools []bool

func (f *flexBools) UnmarshalJSON(b []byte) error {
	var bs []bool
	if err := json.Unmarshal(b, &bs); err == nil {
		*f = bs
		return nil
	}
	var is []int
	if err := json.Unmarshal(b, &is); err != nil {
		return err
	}
	out := make([]bool, len(is))
	for i, v := range is {
		out[i] = v != 0
	}
	*f = out
	return nil
}

// tree keeps split thresholds as float32, the width XGBoost trains and compares
// with, and leaf values as float64.
type tree struct {
	left, right []int
	feature     []int
	cond        []float32
	value       []float64
	defaultLeft []bool
	group       int
	weight      float64
}

func (t *tree) leaf(x []float64) float64 {
	n := 0
	for t.left[n] != -1 {
		v := x[t.feature[n]]
		switch {
		case math.IsNaN(v):
			if t.defaultLeft[n] {
				n = t.left[n]
			} else {
				n = t.right[n]
			}
		case float32(v) < t.cond[n]:
			n = t.left[n]
		default:
			n = t.right[n]
		}
	}
	return t.value[n]
}

type treeModel struct {
	trees        []tree
	objective    string
	base         []float64
	numClass     int
	numFeature   int
	featureNames []string
	version      string
}

func (JSONDecoder) Decode(data []byte) (Model, error) {
	var doc xgbDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("not json: %w", err)
	}
	if doc.Learner == nil || doc.Learner.GradientBooster == nil {
		return nil, errors.New("missing learner.gradient_booster")
	}
	l := doc.Learner

	booster := l.GradientBooster
	var weights []float64
	switch booster.Name {
	case "gbtree":
	case "dart":
		weights = booster.WeightDrop
		booster = booster.GBTree
		if booster == nil {
			return nil, errors.New("dart booster without gbtree")
		}
	default:
		return nil, fmt.Errorf("unsupported booster %q", booster.Name)
	}
	if booster.Model == nil || len(booster.Model.Trees) == 0 {
		return nil, errors.New("model has no trees")
	}
	if weights != nil && len(weights) != len(booster.Model.Trees) {
		return nil, fmt.Errorf("dart weights %d for %d trees", len(weights), len(booster.Model.Trees))
	}

	m := &treeModel{
		objective:    l.Objective.Name,
		featureNames: l.FeatureNames,
		version:      joinInts(doc.Version),
	}
	if !supportedObjective(m.objective) {
		return nil, fmt.Errorf("unsupported objective %q", m.objective)
	}

	var err error
	if m.base, err = parseBaseScore(l.ModelParam.BaseScore); err != nil {
		return nil, err
	}
	if l.ModelParam.NumClass != "" {
		if m.numClass, err = strconv.Atoi(l.ModelParam.NumClass); err != nil {
			return nil, fmt.Errorf("num_class: %w", err)
		}
	}
	if l.ModelParam.NumFeature != "" {
		if m.numFeature, err = strconv.Atoi(l.ModelParam.NumFeature); err != nil {
			return nil, fmt.Errorf("num_feature: %w", err)
		}
	}
	if len(m.featureNames) > 0 {
		if m.numFeature == 0 {
			m.numFeature = len(m.featureNames)
		}
		if m.numFeature != len(m.featureNames) {
			return nil, fmt.Errorf("%d feature names for %d features", len(m.featureNames), m.numFeature)
		}
	}

	groups := 1
	if isMulticlass(m.objective) {
		if m.numClass < 2 {
			return nil, fmt.Errorf("objective %s with num_class %d", m.objective, m.numClass)
		}
		groups = m.numClass
	}

	info := booster.Model.TreeInfo
	m.trees = make([]tree, len(booster.Model.Trees))
	for i, raw := range booster.Model.Trees {
		t, err := compileTree(raw)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		if i < len(info) {
			t.group = info[i]
		}
		if t.group < 0 || t.group >= groups {
			return nil, fmt.Errorf("tree %d: output group %d out of range", i, t.group)
		}
		t.weight = 1
		if weights != nil {
			t.weight = weights[i]
		}
		for n, f := range t.feature {
			if t.left[n] == -1 {
				continue
			}
			if f < 0 || (m.numFeature > 0 && f >= m.numFeature) {
				return nil, fmt.Errorf("tree %d: split on feature %d of %d", i, f, m.numFeature)
			}
		}
		m.trees[i] = t
	}
	if m.numFeature == 0 {
		for _, t := range m.trees {
			for n, f := range t.feature {
				if t.left[n] != -1 && f+1 > m.numFeature {
					m.numFeature = f + 1
				}
			}
		}
	}
	return m, nil
}

func compileTree(raw xgbTree) (tree, error) {
	n := len(raw.LeftChildren)
	if n == 0 {
		return tree{}, errors.New("empty tree")
	}
	if len(raw.RightChildren) != n || len(raw.SplitIndices) != n ||
		len(raw.SplitConditions) != n || len(raw.DefaultLeft) != n {
		return tree{}, errors.New("inconsistent node arrays")
	}
	for _, st := range raw.SplitType {
		if st != 0 {
			return tree{}, errors.New("categorical splits are not supported")
		}
	}
	for i := 0; i < n; i++ {
		l, r := raw.LeftChildren[i], raw.RightChildren[i]
		if l == -1 {
			continue
		}
		// children always come after their parent, so evaluation terminates
		if l <= i || r <= i || l >= n || r >= n {
			return tree{}, fmt.Errorf("node %d has invalid children %d/%d", i, l, r)
		}
	}
	cond := make([]float32, n)
	for i, c := range raw.SplitConditions {
		cond[i] = float32(c)
	}
	return tree{
		left:        raw.LeftChildren,
		right:       raw.RightChildren,
		feature:     raw.SplitIndices,
		cond:        cond,
		value:       raw.SplitConditions,
		defaultLeft: raw.DefaultLeft,
	}, nil
}

// parseBaseScore accepts "5E-1" as well as the bracketed vector form "[5E-1]".
func parseBaseScore(s string) ([]float64, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]"))
	if s == "" {
		return []float64{0.5}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("base_score: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

func supportedObjective(name string) bool {
	switch {
	case name == "binary:logistic", name == "binary:logitraw", name == "reg:logistic":
		return true
	case isMulticlass(name):
		return true
	case name == "count:poisson", name == "reg:gamma", name == "reg:tweedie":
		return true
	case strings.HasPrefix(name, "reg:"):
		return true
	}
	return false
}

func isMulticlass(name string) bool {
	return name == "multi:softprob" || name == "multi:softmax"
}

func (m *treeModel) baseFor(group int) float64 {
	if group < len(m.base) {
		return m.base[group]
	}
	return m.base[0]
}

// input maps the labelled row onto the model's feature indices.
func (m *treeModel) input(row []float64, columns []string) ([]float64, error) {
	if len(m.featureNames) == 0 {
		if len(row) < m.numFeature {
			return nil, fmt.Errorf("model expects %d features, got %d", m.numFeature, len(row))
		}
		return row, nil
	}
	if len(columns) != len(row) {
		return nil, fmt.Errorf("%d column names for %d values", len(columns), len(row))
	}
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	x := make([]float64, len(m.featureNames))
	for i, name := range m.featureNames {
		j, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("feature %q missing from input", name)
		}
		x[i] = row[j]
	}
	return x, nil
}

func (m *treeModel) Predict(row []float64, columns []string) (float64, []float64, error) {
	x, err := m.input(row, columns)
	if err != nil {
		return 0, nil, err
	}

	groups := 1
	if isMulticlass(m.objective) {
		groups = m.numClass
	}
	sums := make([]float64, groups)
	for i := range m.trees {
		t := &m.trees[i]
		sums[t.group] += t.weight * t.leaf(x)
	}

	switch m.objective {
	case "binary:logistic", "reg:logistic":
		// single-output models carry no class probabilities, same as the legacy decoder
		return sigmoid(sums[0] + logit(m.baseFor(0))), nil, nil
	case "binary:logitraw":
		return sums[0] + m.baseFor(0), nil, nil
	case "multi:softprob", "multi:softmax":
		for k := range sums {
			sums[k] += m.baseFor(k)
		}
		probs := softmax(sums)
		return float64(argmax(probs)), probs, nil
	case "count:poisson", "reg:gamma", "reg:tweedie":
		return math.Exp(sums[0] + math.Log(m.baseFor(0))), nil, nil
	default:
		return sums[0] + m.baseFor(0), nil, nil
	}
}

func (m *treeModel) Meta() map[string]string {
	return map[string]string{
		"objective":     m.objective,
		"num_trees":     strconv.Itoa(len(m.trees)),
		"num_features":  strconv.Itoa(m.numFeature),
		"num_class":     strconv.Itoa(m.numClass),
		"named_columns": strconv.FormatBool(len(m.featureNames) > 0),
		"xgb_version":   m.version,
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return math.Log(p / (1 - p))
}

func softmax(in []float64) []float64 {
	mx := math.Inf(-1)
	for _, v := range in {
		mx = math.Max(mx, v)
	}
	out := make([]float64, len(in))
	sum := 0.0
	for i, v := range in {
		out[i] = math.Exp(v - mx)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(in []float64) int {
	best := 0
	for i, v := range in {
		if v > in[best] {
			best = i
		}
	}
	return best
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}
