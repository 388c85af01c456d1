package persistence

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"mlfit/internal/learn"
	"mlfit/internal/learners"
	"mlfit/internal/preprocessing"
)

// ModelBundle packages a fitted model with the label encoder it needs
// at prediction time plus training metadata, gob-encoded in one file.
type ModelBundle struct {
	Model        learn.Model
	LabelEncoder *preprocessing.LabelEncoder
	Metadata     BundleMetadata
	CreatedAt    time.Time
}

type BundleMetadata struct {
	FitterName   string
	ModelName    string
	ProblemKind  string
	Dataset      string
	Score        float64
	ScoreName    string
	TrainingTime time.Duration
	Features     []string
	Classes      []string
	Parameters   map[string]any
}

func registerGobTypes() {
	gob.Register(&learners.KNNClassifierModel{})
	gob.Register(&learners.KNNRegressorModel{})
	gob.Register(&learners.NaiveBayesModel{})
	gob.Register(&learners.TreeClassifierModel{})
	gob.Register(&learners.TreeRegressorModel{})
	gob.Register(&learners.ForestClassifierModel{})
	gob.Register(&learners.LinearModel{})
	gob.Register(&preprocessing.Scaler{})

	// Parameter maps hold interface values; gob needs their concrete
	// types registered.
	gob.Register(0)
	gob.Register(int64(0))
	gob.Register(0.0)
	gob.Register("")
	gob.Register(false)
}

func NewModelBundle(model learn.Model) *ModelBundle {
	return &ModelBundle{
		Model:     model,
		CreatedAt: time.Now(),
		Metadata: BundleMetadata{
			ModelName: model.Name(),
		},
	}
}

// SetParameters records the learner's parameters, keeping only the
// scalar values gob can carry. The preprocessor chain in particular is
// dropped here; the fitted chain already travels inside the model.
func (mb *ModelBundle) SetParameters(params map[string]any) {
	clean := make(map[string]any, len(params))
	for k, v := range params {
		switch v.(type) {
		case int, int64, float64, float32, string, bool:
			clean[k] = v
		}
	}
	mb.Metadata.Parameters = clean
}

func (mb *ModelBundle) Save(filename string) error {
	registerGobTypes()

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(mb); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return nil
}

func LoadModelBundle(filename string) (*ModelBundle, error) {
	registerGobTypes()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var bundle ModelBundle
	if err := gob.NewDecoder(file).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return &bundle, nil
}

// SaveMetadata writes a human-readable sidecar next to the bundle.
func (mb *ModelBundle) SaveMetadata(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}
	defer file.Close()

	m := mb.Metadata
	fmt.Fprintf(file, "Fitter: %s\n", m.FitterName)
	fmt.Fprintf(file, "Model: %s\n", m.ModelName)
	fmt.Fprintf(file, "Problem kind: %s\n", m.ProblemKind)
	fmt.Fprintf(file, "Dataset: %s\n", m.Dataset)
	fmt.Fprintf(file, "%s: %.4f\n", m.ScoreName, m.Score)
	fmt.Fprintf(file, "Training time: %s\n", m.TrainingTime)
	fmt.Fprintf(file, "Created: %s\n", mb.CreatedAt.Format(time.RFC3339))
	if len(m.Features) > 0 {
		fmt.Fprintf(file, "Features: %v\n", m.Features)
	}
	if len(m.Classes) > 0 {
		fmt.Fprintf(file, "Classes: %v\n", m.Classes)
	}
	if len(m.Parameters) > 0 {
		fmt.Fprintf(file, "Parameters: %v\n", m.Parameters)
	}
	return nil
}
