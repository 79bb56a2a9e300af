package reportutils

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	analysis "github.com/NMikolajewicz/Brakel-2025/AnalysisUtils"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

var schema = []string{
	`DROP TABLE IF EXISTS codependency`,
	`DROP TABLE IF EXISTS pathways`,
	`DROP TABLE IF EXISTS comparisons`,
	`CREATE TABLE codependency (
		run_id TEXT, reference_gene TEXT, target_gene TEXT, rank INTEGER,
		mean_ncdi REAL, median_ncdi REAL, sd_ncdi REAL, n_samples INTEGER, n_significant INTEGER,
		z REAL, p_value REAL, p_adj REAL, significant INTEGER)`,
	`CREATE TABLE pathways (
		run_id TEXT, pathway TEXT, feature TEXT, mean_correlation REAL, n_samples INTEGER,
		p_value REAL, p_adj REAL, significant INTEGER)`,
	`CREATE TABLE comparisons (
		run_id TEXT, contrast TEXT, scope TEXT, gene TEXT, metric TEXT, method TEXT,
		statistic REAL, p_value_raw REAL, available INTEGER, note TEXT)`,
}

/*nullable NaN stored as NULL */
func nullable(value float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: value, Valid: !math.IsNaN(value) && !math.IsInf(value, 0)}
}

/*ExportSQLite write the result tables into a SQLite database (tables are recreated) */
func ExportSQLite(ctx context.Context, path, runID string, codep []analysis.CoDepSummary,
	pathways []analysis.PathwaySummary, comparisons []analysis.ComparisonResult) error {
	db, err := sql.Open("sqlite", path)

	if err != nil {
		return err
	}

	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)

	if err != nil {
		return err
	}

	if err = fillDatabase(ctx, tx, runID, codep, pathways, comparisons); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite export %s: %w", path, err)
	}

	return tx.Commit()
}

func fillDatabase(ctx context.Context, tx *sql.Tx, runID string, codep []analysis.CoDepSummary,
	pathways []analysis.PathwaySummary, comparisons []analysis.ComparisonResult) error {
	for _, statement := range schema {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return err
		}
	}

	for _, s := range codep {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO codependency VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, s.ReferenceGene, s.TargetGene, s.Rank, nullable(s.Mean), nullable(s.Median),
			nullable(s.SD), s.N, s.NSignificant, nullable(s.Z), nullable(s.P), nullable(s.PAdj),
			s.Significant); err != nil {
			return err
		}
	}

	for _, s := range pathways {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pathways VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, s.Pathway, s.Feature, nullable(s.MeanCorrelation), s.N, nullable(s.Test.P),
			nullable(s.PAdj), s.Significant); err != nil {
			return err
		}
	}

	for _, r := range comparisons {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comparisons VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.Contrast, r.Scope, r.Gene, r.Metric, r.Test.Method, nullable(r.Test.Statistic),
			nullable(r.Test.P), r.Test.Available, r.Test.Reason); err != nil {
			return err
		}
	}

	return nil
}
