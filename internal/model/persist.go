package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

const formatVersion = 1

// Bundle is a trained classifier plus the feature order it expects.
type Bundle struct {
	Kind       string
	Features   []string
	Classifier Classifier
}

type envelope struct {
	Version  int      `json:"version"`
	Kind     string   `json:"kind"`
	Features []string `json:"features"`
	GBT      *GBT     `json:"gbt,omitempty"`
	KNN      *KNN     `json:"knn,omitempty"`
}

// Save writes a trained classifier as JSON, atomically.
func Save(path string, c Classifier, features []string) error {
	env := envelope{Version: formatVersion, Features: features}
	switch m := c.(type) {
	case *GBT:
		env.Kind, env.GBT = KindGBT, m
	case *KNN:
		env.Kind, env.KNN = KindKNN, m
	default:
		return fmt.Errorf("cannot save classifier %T", c)
	}
	b, err := utils.PrettyJSON(env)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Load reads a classifier written by Save.
func Load(path string) (*Bundle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("model format version %d not supported", env.Version)
	}
	out := &Bundle{Kind: env.Kind, Features: env.Features}
	switch {
	case env.Kind == KindGBT && env.GBT != nil:
		out.Classifier = env.GBT
	case env.Kind == KindKNN && env.KNN != nil:
		out.Classifier = env.KNN
	default:
		return nil, fmt.Errorf("model file %s holds no %q classifier", path, env.Kind)
	}
	return out, nil
}
