package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wildfunctions/evogp/pkg/gp"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

// GenerationReport summarizes one generation.
type GenerationReport struct {
	Attempt     int            `json:"attempt"`
	Generation  int            `json:"generation"`
	BestFitness symreg.Fitness `json:"best_fitness"`
	BestExpr    string         `json:"best_expr"`
	AvgFitness  float64        `json:"avg_fitness"` // over scored candidates
	AvgSize     float64        `json:"avg_size"`
	Failed      int            `json:"failed"`
}

// AttemptResult summarizes one restart attempt.
type AttemptResult struct {
	Attempt        int            `json:"attempt"`
	Generations    int            `json:"generations"`
	BestFoundAtGen int            `json:"best_found_at_gen"`
	BestExpr       string         `json:"best_expr"`
	BestFitness    symreg.Fitness `json:"best_fitness"`
	Solved         bool           `json:"solved"`
	Timestamp      time.Time      `json:"timestamp"`
}

// HallOfFameEntry is one distinct tree among the best ever seen.
type HallOfFameEntry struct {
	Expr    string         `json:"expr"`
	Fitness symreg.Fitness `json:"fitness"`
	Tree    *gp.Document   `json:"tree"`
}

// FinalReport summarizes the entire run.
type FinalReport struct {
	RunID       string             `json:"run_id"`
	Config      Config             `json:"config"`
	Generations []GenerationReport `json:"generations,omitempty"`
	BestExpr    string             `json:"best_expr"`
	BestFitness symreg.Fitness     `json:"best_fitness"`
	BestTree    *gp.Document       `json:"best_tree,omitempty"`
	Attempts    []AttemptResult    `json:"attempts,omitempty"`
	HallOfFame  []HallOfFameEntry  `json:"hall_of_fame,omitempty"`
}

// WriteTextReport writes a generation report in human-readable format.
func WriteTextReport(w io.Writer, r GenerationReport) {
	fmt.Fprintf(w, "Gen %4d | Best: %.4f (mse %.4g, %d hits) | Avg: %.4f | Size: %.1f | %s\n",
		r.Generation, r.BestFitness.Combined, r.BestFitness.MSE, r.BestFitness.Hits,
		r.AvgFitness, r.AvgSize, r.BestExpr)
}

// WriteAttemptSummary writes a single attempt result.
func WriteAttemptSummary(w io.Writer, a AttemptResult) {
	fmt.Fprintf(w, "Attempt %d: %d generations, mse %.4g | %s\n",
		a.Attempt, a.Generations, a.BestFitness.MSE, a.BestExpr)
}

// sortByFitness returns a copy of attempts, best first.
func sortByFitness(attempts []AttemptResult) []AttemptResult {
	sorted := slices.Clone(attempts)
	slices.SortStableFunc(sorted, func(a, b AttemptResult) int {
		switch {
		case symreg.Better(a.BestFitness, b.BestFitness):
			return -1
		case symreg.Better(b.BestFitness, a.BestFitness):
			return 1
		}
		return 0
	})
	return sorted
}

// WriteHallOfFame writes the sorted attempts.
func WriteHallOfFame(w io.Writer, attempts []AttemptResult) {
	fmt.Fprintln(w, "\n--- Attempts ---")
	for i, a := range sortByFitness(attempts) {
		fmt.Fprintf(w, "  #%d: [attempt %d, gen %d] %10.4f | %s\n",
			i+1, a.Attempt, a.BestFoundAtGen, a.BestFitness.Combined, a.BestExpr)
	}
}

// WriteTextFinal writes the final report in human-readable format.
func WriteTextFinal(w io.Writer, r FinalReport) {
	if len(r.Attempts) > 0 {
		WriteHallOfFame(w, r.Attempts)
	}
	if len(r.HallOfFame) > 0 {
		fmt.Fprintln(w, "\n--- Hall of Fame ---")
		for i, h := range r.HallOfFame {
			fmt.Fprintf(w, "  #%d: %10.4f | %s\n", i+1, h.Fitness.Combined, h.Expr)
		}
	}
	fmt.Fprintln(w, "\n========== FINAL RESULT ==========")
	fmt.Fprintf(w, "Run:       %s\n", r.RunID)
	fmt.Fprintf(w, "Target:    %s\n", r.Config.Target)
	fmt.Fprintf(w, "Strategy:  %s\n", r.Config.Strategy)
	fmt.Fprintf(w, "Pool:      %s\n", r.Config.Pool)
	fmt.Fprintf(w, "Best:      %s\n", r.BestExpr)
	fmt.Fprintf(w, "Fitness:   %.4f\n", r.BestFitness.Combined)
	fmt.Fprintf(w, "MSE:       %.6g\n", r.BestFitness.MSE)
	fmt.Fprintf(w, "Hits:      %d/%d\n", r.BestFitness.Hits, r.Config.Samples)
	fmt.Fprintf(w, "Size:      %d\n", r.BestFitness.Size)
	fmt.Fprintln(w, "==================================")
}

// WriteJSONFinal writes the final report as JSON.
func WriteJSONFinal(w io.Writer, r FinalReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

const (
	sheetGenerations = "Generations"
	sheetAttempts    = "Attempts"
)

// WriteLogbookXLSX writes one row per generation and one per attempt to an
// Excel workbook at path.
func WriteLogbookXLSX(path string, gens []GenerationReport, attempts []AttemptResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetGenerations); err != nil {
		return err
	}
	rows := [][]any{{"attempt", "generation", "best_fitness", "best_mse", "best_hits", "best_size", "avg_fitness", "avg_size", "failed", "best_expr"}}
	for _, g := range gens {
		rows = append(rows, []any{
			g.Attempt, g.Generation, g.BestFitness.Combined, g.BestFitness.MSE,
			g.BestFitness.Hits, g.BestFitness.Size, g.AvgFitness, g.AvgSize, g.Failed, g.BestExpr,
		})
	}
	if err := writeRows(f, sheetGenerations, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetAttempts); err != nil {
		return err
	}
	rows = [][]any{{"attempt", "generations", "best_found_at_gen", "best_fitness", "best_mse", "solved", "timestamp", "best_expr"}}
	for _, a := range attempts {
		rows = append(rows, []any{
			a.Attempt, a.Generations, a.BestFoundAtGen, a.BestFitness.Combined,
			a.BestFitness.MSE, a.Solved, a.Timestamp.Format(time.RFC3339), a.BestExpr,
		})
	}
	if err := writeRows(f, sheetAttempts, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write logbook %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
