package signal

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Meta declares the trained model's feature-column order and the mapping
// from class index to label name.
type Meta struct {
	Features []string          `json:"features"`
	LabelMap map[string]string `json:"label_map"`
}

// LoadMeta reads the model metadata document.
func LoadMeta(path string) (*Meta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse meta: %w", err)
	}
	if len(m.Features) == 0 {
		return nil, fmt.Errorf("meta declares no feature columns")
	}
	if m.LabelMap == nil {
		m.LabelMap = map[string]string{"0": "none", "1": "long", "2": "short"}
	}
	return &m, nil
}

// LogisticClassifier is a multinomial logistic model exported to JSON by the
// training pipeline: one coefficient row and intercept per class.
type LogisticClassifier struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
	ClassList []int       `json:"classes"`
}

// LoadClassifier reads and validates serialized model weights.
func LoadClassifier(path string) (*LogisticClassifier, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var c LogisticClassifier
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if len(c.Coef) == 0 || len(c.Coef) != len(c.Intercept) || len(c.Coef) != len(c.ClassList) {
		return nil, fmt.Errorf("model shape mismatch: %d coef rows, %d intercepts, %d classes",
			len(c.Coef), len(c.Intercept), len(c.ClassList))
	}
	return &c, nil
}

// PredictProba returns softmax class probabilities for a feature vector.
func (c *LogisticClassifier) PredictProba(features []float64) ([]float64, error) {
	scores := make([]float64, len(c.Coef))
	for k, row := range c.Coef {
		if len(row) != len(features) {
			return nil, fmt.Errorf("feature vector length %d, model expects %d", len(features), len(row))
		}
		s := c.Intercept[k]
		for i, w := range row {
			s += w * features[i]
		}
		scores[k] = s
	}

	// stable softmax
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	probs := make([]float64, len(scores))
	for k, s := range scores {
		probs[k] = math.Exp(s - maxScore)
		sum += probs[k]
	}
	for k := range probs {
		probs[k] /= sum
	}
	return probs, nil
}

// Classes enumerates class identifiers in probability order.
func (c *LogisticClassifier) Classes() []int {
	return c.ClassList
}
