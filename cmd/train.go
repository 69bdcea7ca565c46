package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/pdspeech-cli/internal/model"
	"github.com/KaramelBytes/pdspeech-cli/internal/render"
	"github.com/KaramelBytes/pdspeech-cli/internal/runner"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/spf13/cobra"
)

var (
	trTrain     string
	trTest      string
	trModel     string
	trSearch    bool
	trScorer    string
	trFolds     int
	trThreshold float64
	trSave      string
	trTree      bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit a baseline classifier on the train set and report on the test set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		trainPath, testPath := trTrain, trTest
		if trainPath == "" {
			trainPath = filepath.Join(c.OutputPath(), runner.TrainFile)
		}
		if testPath == "" {
			testPath = filepath.Join(c.OutputPath(), runner.TestFile)
		}
		load := func(path string) (*model.Dataset, error) {
			t, err := table.Load(path)
			if err != nil {
				return nil, err
			}
			return model.DatasetFromTable(t, cat.Schema)
		}
		train, err := load(trainPath)
		if err != nil {
			return fmt.Errorf("train set: %w", err)
		}
		test, err := load(testPath)
		if err != nil {
			return fmt.Errorf("test set: %w", err)
		}

		gbtParams := model.DefaultGBTParams()
		gbtParams.NEstimators = c.GBTEstimators
		gbtParams.LearningRate = c.GBTLearningRate
		gbtParams.MaxDepth = c.GBTMaxDepth
		gbtParams.Subsample = c.GBTSubsample
		gbtParams.RandomState = c.GBTRandomState
		knnParams := model.KNNParams{K: c.KNNNeighbors, Weights: c.KNNWeights, P: c.KNNP}

		var (
			clf  model.Classifier
			grid []model.Candidate
		)
		scorer := trScorer
		switch trModel {
		case model.KindGBT:
			clf, grid = model.NewGBT(gbtParams), model.GBTGrid(gbtParams)
			if scorer == "" {
				scorer = "weighted_recall"
			}
		case model.KindKNN:
			clf, grid = model.NewKNN(knnParams), model.KNNGrid(knnParams)
			if scorer == "" {
				scorer = "recall"
			}
		default:
			return fmt.Errorf("unknown --model %q (want gbt|knn)", trModel)
		}

		out := cmd.OutOrStdout()
		ropt := render.For(out)
		if trSearch {
			score, err := model.ScorerByName(scorer)
			if err != nil {
				return err
			}
			folds := c.Folds
			if cmd.Flags().Changed("folds") {
				folds = trFolds
			}
			logger.Info("grid search", "model", trModel, "candidates", len(grid), "folds", folds, "scorer", scorer)
			res, err := model.GridSearch(cmd.Context(), grid, train.X, train.Y, folds, score)
			if err != nil {
				return err
			}
			best := res.BestScore()
			fmt.Fprintf(out, "✓ Best of %d candidates by %s (%.3f): %s\n", len(grid), scorer, best.Mean, best.Label)
			clf = res.Best
		} else if err := clf.Fit(train.X, train.Y); err != nil {
			return err
		}

		var thr *float64
		if cmd.Flags().Changed("threshold") {
			thr = &trThreshold
		}
		_, rep, err := model.Evaluate(clf, test.X, test.Y, thr)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Model: %s\n", clf.Name())
		fmt.Fprintln(out, render.ClassificationReport(rep, ropt))
		fmt.Fprintln(out, render.Confusion(rep, ropt))

		if g, ok := clf.(*model.GBT); ok {
			fmt.Fprintln(out, "Feature importances:")
			fmt.Fprint(out, render.Importances(train.Features, g.Importances, 40))
			if trTree && len(g.Trees) > 0 {
				fmt.Fprintln(out, "First tree:")
				fmt.Fprint(out, render.TreeOutline(g.Trees[0], train.Features))
			}
		}

		if trSave != "" {
			if err := model.Save(trSave, clf, train.Features); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Saved model to %s\n", trSave)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringVar(&trTrain, "train", "", "training CSV (default: <output_dir>/train_data.csv)")
	trainCmd.Flags().StringVar(&trTest, "test", "", "test CSV (default: <output_dir>/test_data.csv)")
	trainCmd.Flags().StringVarP(&trModel, "model", "m", model.KindGBT, "classifier: gbt|knn")
	trainCmd.Flags().BoolVar(&trSearch, "search", false, "cross-validated grid search before the final fit")
	trainCmd.Flags().StringVar(&trScorer, "scorer", "", "search metric: recall|weighted_recall|accuracy (default depends on model)")
	trainCmd.Flags().IntVar(&trFolds, "folds", model.DefaultFolds, "cross-validation folds (default: folds from config)")
	trainCmd.Flags().Float64Var(&trThreshold, "threshold", 0.5, "label rows with P(parkinson's) above this instead of the default decision")
	trainCmd.Flags().StringVar(&trSave, "save", "", "write the trained model to this JSON file")
	trainCmd.Flags().BoolVar(&trTree, "tree", false, "print the first boosting tree (gbt)")
}
