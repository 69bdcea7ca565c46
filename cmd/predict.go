package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/KaramelBytes/pdspeech-cli/internal/model"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/spf13/cobra"
)

var (
	predModel     string
	predRow       string
	predThreshold float64
	predOutput    string
	predSheet     string
)

var predictCmd = &cobra.Command{
	Use:   "predict [file]",
	Short: "Label rows with a saved model",
	Long: `Predict labels for every row of a CSV/TSV/XLSX file, or for a single
comma-separated feature vector passed with --row.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if predModel == "" {
			return errors.New("--model is required")
		}
		b, err := model.Load(predModel)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if predRow != "" {
			if len(args) > 0 {
				return errors.New("use either a file or --row, not both")
			}
			fields := splitList(predRow)
			row := make([]float64, len(fields))
			for i, f := range fields {
				if row[i], err = strconv.ParseFloat(f, 64); err != nil {
					return fmt.Errorf("--row value %d: %w", i+1, err)
				}
			}
			lbl, p, err := model.PredictRow(b.Classifier, row)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				lbl = model.Threshold([]float64{p}, predThreshold)[0]
			}
			fmt.Fprintf(out, "prediction: %d (%s), probability: %.4f\n", lbl, model.ClassLabels[lbl], p)
			return nil
		}
		if len(args) == 0 {
			return errors.New("need a file or --row")
		}

		t, err := loadInput(args[0], predSheet)
		if err != nil {
			return err
		}
		X, err := model.MatrixFromTable(t, b.Features)
		if err != nil {
			return err
		}
		proba, err := b.Classifier.PredictProba(X)
		if err != nil {
			return err
		}
		var labels []int
		if cmd.Flags().Changed("threshold") {
			labels = model.Threshold(proba, predThreshold)
		} else if labels, err = b.Classifier.Predict(X); err != nil {
			return err
		}

		res := t.Clone()
		res.Columns = append(res.Columns, "prediction", "probability")
		for i := range res.Rows {
			res.Rows[i] = append(res.Rows[i], strconv.Itoa(labels[i]), table.FormatFloat(proba[i]))
		}
		if predOutput == "" {
			data, err := table.EncodeCSV(res)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}
		if err := table.WriteCSV(predOutput, res); err != nil {
			return err
		}
		positives := 0
		for _, l := range labels {
			positives += l
		}
		fmt.Fprintf(out, "✓ Wrote %d predictions (%d labelled 1): %s\n", len(labels), positives, predOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVar(&predModel, "model", "", "model JSON written by train --save")
	predictCmd.Flags().StringVar(&predRow, "row", "", "single comma-separated feature vector in the model's feature order")
	predictCmd.Flags().Float64Var(&predThreshold, "threshold", 0.5, "label 1 when P(parkinson's) exceeds this")
	predictCmd.Flags().StringVarP(&predOutput, "output", "o", "", "write predictions CSV here (default: stdout)")
	predictCmd.Flags().StringVar(&predSheet, "sheet", "", "XLSX sheet name")
}
