// Package learners provides the concrete fitting strategies and the
// fitter definitions binding them per problem kind.
package learners

import (
	"fmt"
	"sort"

	"mlfit/internal/learn"
)

// Fitter definitions. Each pairs up to one classification and one
// regression constructor; the fitter picks a side per dataset. Invalid
// bindings fail at init via MustDefine.
var (
	// KNN handles both target kinds with nearest-neighbor learners.
	KNN = learn.MustDefine("knn", learn.Binding{
		Classification: &learn.Constructor{
			Name:       "KNNClassifier",
			ParamNames: []string{"k", "distance", learn.PreprocessorsParam},
			New:        NewKNNClassifier,
		},
		Regression: &learn.Constructor{
			Name:       "KNNRegressor",
			ParamNames: []string{"k", "distance", learn.PreprocessorsParam},
			New:        NewKNNRegressor,
		},
	})

	// Bayes is classification-only.
	Bayes = learn.MustDefine("bayes", learn.Binding{
		Classification: &learn.Constructor{
			Name:       "NaiveBayes",
			ParamNames: []string{"var_smoothing", learn.PreprocessorsParam},
			New:        NewNaiveBayes,
		},
	})

	// Linear is regression-only, fitted by SGD.
	Linear = learn.MustDefine("linear", learn.Binding{
		Regression: &learn.Constructor{
			Name:       "LinearRegression",
			ParamNames: []string{"learning_rate", "epochs", "batch_size", "seed", learn.PreprocessorsParam},
			New:        NewLinearRegression,
		},
	})

	// RidgeDef is regression-only, closed form.
	RidgeDef = learn.MustDefine("ridge", learn.Binding{
		Regression: &learn.Constructor{
			Name:       "Ridge",
			ParamNames: []string{"alpha", learn.PreprocessorsParam},
			New:        NewRidge,
		},
	})

	// Tree handles both target kinds: Gini trees for classification,
	// variance-reduction trees for regression.
	Tree = learn.MustDefine("tree", learn.Binding{
		Classification: &learn.Constructor{
			Name:       "TreeClassifier",
			ParamNames: []string{"max_depth", "min_samples_split", learn.PreprocessorsParam},
			New:        NewTreeClassifier,
		},
		Regression: &learn.Constructor{
			Name:       "TreeRegressor",
			ParamNames: []string{"max_depth", "min_samples_split", learn.PreprocessorsParam},
			New:        NewTreeRegressor,
		},
	})

	// Forest is classification-only bagging over Gini trees.
	Forest = learn.MustDefine("forest", learn.Binding{
		Classification: &learn.Constructor{
			Name:       "ForestClassifier",
			ParamNames: []string{"n_trees", "max_depth", "min_samples_split", "seed", learn.PreprocessorsParam},
			New:        NewForestClassifier,
		},
	})
)

var registry = map[string]*learn.Definition{
	KNN.Name():      KNN,
	Bayes.Name():    Bayes,
	Linear.Name():   Linear,
	RidgeDef.Name(): RidgeDef,
	Tree.Name():     Tree,
	Forest.Name():   Forest,
}

// Lookup resolves a fitter definition by name.
func Lookup(name string) (*learn.Definition, error) {
	def, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown fitter: %s (available: %v)", name, Names())
	}
	return def, nil
}

// Names lists the registered definitions, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
