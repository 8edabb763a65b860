package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/vcf2snps/internal/duckdb"
	"github.com/inodb/vcf2snps/internal/output"
)

func newInspectCmd() *cobra.Command {
	var (
		rows   int
		counts bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [flags] <database>",
		Short: "Show the layout and contents of a SNP matrix database",
		Example: `  vcf2snps inspect analysis-vcf2snps/test.snps.duckdb
  vcf2snps inspect --rows 20 --counts test.snps.duckdb`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows < 0 {
				return &usageError{fmt.Errorf("--rows must not be negative, got %d", rows)}
			}
			return runInspect(cmd.OutOrStdout(), args[0], rows, counts)
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "r", 0, "Print the first N variant rows")
	cmd.Flags().BoolVar(&counts, "counts", false, "Print per-sample call counts")

	return cmd
}

func runInspect(w io.Writer, path string, rows int, counts bool) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	datasets, err := store.Datasets()
	if err != nil {
		return err
	}
	names, err := store.Names(duckdb.DatasetSnps)
	if err != nil {
		return err
	}
	scaffolds, err := store.Scaffolds()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "database: %s\n", path)
	for _, d := range datasets {
		fmt.Fprintf(w, "  %-8s %s %v\n", d.Name, d.Dtype, d.Shape)
	}
	fmt.Fprintf(w, "samples (%d): %s\n", len(names), strings.Join(names, " "))
	fmt.Fprintf(w, "scaffolds: %d\n", len(scaffolds))

	if src, err := store.Source(); err == nil {
		fmt.Fprintf(w, "source: %s (%s, %s grouping, block size %d)\n",
			src.File.Path, src.FormatSource, src.Mode, src.BlockSize)
	}

	if rows == 0 && !counts {
		return nil
	}

	m, err := store.ReadMatrix()
	if err != nil {
		return err
	}

	tw := output.NewTabWriter(w)
	if rows > 0 {
		if err := tw.WriteHeader(); err != nil {
			return err
		}
		for v := 0; v < rows && v < m.NSNPs; v++ {
			if err := tw.Write(m, v); err != nil {
				return err
			}
		}
	}
	if counts {
		if err := tw.WriteCallCounts(m); err != nil {
			return err
		}
	}
	return tw.Flush()
}
