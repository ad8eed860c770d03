package ecg

import (
	"os"
	"sort"

	"github.com/siglab/siglab-go/internal/errors"
	"github.com/siglab/siglab-go/internal/logging"
)

// ModelLabels are the rhythm abnormalities the classifier scores, in
// model output order.
var ModelLabels = []string{"1dAVb", "RBBB", "LBBB", "SB", "AF", "ST"}

// NormalThreshold: when every abnormality probability falls below it,
// the recording is reported as a normal ECG.
const NormalThreshold = 0.2

// ModelInputLength is the fixed sample count the classifier expects per
// lead; shorter recordings are zero-padded and longer ones truncated.
const ModelInputLength = 4096

// Prediction is one scored condition.
type Prediction struct {
	Condition   string  `json:"condition"`
	Probability float64 `json:"probability"`
	Confidence  string  `json:"confidence"`
}

// Classification is the full classifier verdict.
type Classification struct {
	Predictions      []Prediction       `json:"predictions"`
	PrimaryDiagnosis string             `json:"primary_diagnosis"`
	IsAbnormal       bool               `json:"is_abnormal"`
	IsNormal         bool               `json:"is_normal"`
	ModelUsed        bool               `json:"model_used"`
	Message          string             `json:"message"`
	Confidence       float64            `json:"confidence"`
	RawProbabilities map[string]float64 `json:"raw_probabilities"`
}

// Classifier wraps the pretrained rhythm model. The model itself is an
// external collaborator; this type only gates on its presence and
// post-processes its probability vector.
type Classifier struct {
	modelPath string
}

// LoadClassifier checks that the model weights exist at path. The
// native inference runtime is not bundled, so a missing or present but
// unloadable model leaves the classify capability unavailable and the
// API reports it as such.
func LoadClassifier(path string) (*Classifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New(err).
			Component("ecg").
			Category(errors.CategoryCapability).
			Context("model_path", path).
			Build()
	}
	logging.ForService("ecg").Info("ECG model weights found", "path", path)
	return &Classifier{modelPath: path}, nil
}

// BuildClassification turns a raw probability vector from the model
// into the ranked diagnosis report. Probabilities must be in model
// label order. No bundled runtime produces such a vector today; this
// is the post-processing half of the classify capability, kept ready
// for an inference backend wired in at deployment time.
func BuildClassification(probs []float64) (*Classification, error) {
	if len(probs) != len(ModelLabels) {
		return nil, errors.Newf("expected %d probabilities, got %d", len(ModelLabels), len(probs)).
			Component("ecg").
			Category(errors.CategoryValidation).
			Build()
	}

	predictions := make([]Prediction, len(probs))
	raw := make(map[string]float64, len(probs))
	maxProb := 0.0
	maxCondition := ""
	for i, p := range probs {
		predictions[i] = Prediction{
			Condition:   ModelLabels[i],
			Probability: p,
			Confidence:  confidenceTier(p),
		}
		raw[ModelLabels[i]] = p
		if p > maxProb {
			maxProb = p
			maxCondition = ModelLabels[i]
		}
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Probability > predictions[j].Probability
	})

	result := &Classification{
		Predictions:      predictions,
		ModelUsed:        true,
		RawProbabilities: raw,
	}
	if maxProb < NormalThreshold {
		result.PrimaryDiagnosis = "Normal ECG"
		result.IsNormal = true
		result.Message = "Normal ECG"
		result.Confidence = 1 - maxProb
	} else {
		result.PrimaryDiagnosis = maxCondition
		result.IsAbnormal = true
		result.Message = "Abnormal ECG"
		result.Confidence = maxProb
	}
	return result, nil
}

func confidenceTier(p float64) string {
	switch {
	case p > 0.7:
		return "High"
	case p > 0.4:
		return "Medium"
	default:
		return "Low"
	}
}

// PrepareModelInput pads or truncates leads to the fixed model window
// and transposes to sample-major order, the shape an inference backend
// consumes. Like BuildClassification it awaits a runtime; the HTTP
// layer reports the capability as unavailable until one is configured.
func PrepareModelInput(leads [][]float64) [][]float64 {
	out := make([][]float64, ModelInputLength)
	for i := range out {
		row := make([]float64, len(LeadNames))
		for l := 0; l < len(LeadNames) && l < len(leads); l++ {
			if i < len(leads[l]) {
				row[l] = leads[l][i]
			}
		}
		out[i] = row
	}
	return out
}
