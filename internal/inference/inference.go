// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inference provides the text classifier and entity extractor used
// by case intake. Both are inference-only: models are trained elsewhere and
// loaded from files or served by a remote model server.
package inference

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/medonboard/pkg/types"
)

// Classifier assigns one category from types.ClassifierCategories to a text.
type Classifier interface {
	Classify(ctx context.Context, text string) (types.Category, error)
}

// Extractor returns the labeled entity spans found in a text, in text order.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]types.EntitySpan, error)
}

// ReferenceNames lists knowledge base names to add to local entity patterns.
type ReferenceNames struct {
	Diseases  []string
	Medicines []string
}

// Open builds the classifier and extractor selected by cfg. The remote
// backend serves both from one client. names may be empty.
func Open(cfg types.InferenceConfig, names ReferenceNames, logger *logrus.Logger) (Classifier, Extractor, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	switch cfg.Backend {
	case types.InferenceRemote:
		m, err := NewRemoteModel(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil

	case types.InferenceLocal, "":
		clf, err := LoadLinearModel(cfg.ClassifierModel)
		if err != nil {
			return nil, nil, err
		}
		ext, err := LoadLexicon(cfg.EntityModel)
		if err != nil {
			return nil, nil, err
		}
		if cfg.UseReferenceNames {
			ext.AddNames(types.EntityDisease, names.Diseases)
			ext.AddNames(types.EntityMedicine, names.Medicines)
		}
		logger.WithFields(logrus.Fields{
			"labels":   clf.Labels(),
			"patterns": ext.Len(),
		}).Debug("Loaded local models")
		return clf, ext, nil
	}
	return nil, nil, fmt.Errorf("unknown inference backend %q", cfg.Backend)
}
