package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inodb/vcf2snps/internal/duckdb"
	"github.com/inodb/vcf2snps/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		format    string
		dir       string
		chunkSize int
	)

	cmd := &cobra.Command{
		Use:   "export [flags] <database>",
		Short: "Export a SNP matrix database as numpy or Arrow files",
		Long: `Export the arrays of a SNP matrix database.

  npy    genos.npy, snps.npy and snpsmap.npy with the stored shapes
  arrow  snps.arrow, one row per variant and one uint8 column per sample`,
		Example: `  vcf2snps export --format npy --dir out/ test.snps.duckdb
  vcf2snps export --format arrow test.snps.duckdb`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "npy" && format != "arrow" {
				return &usageError{fmt.Errorf("unknown export format %q", format)}
			}
			return runExport(cmd.OutOrStdout(), args[0], format, dir, chunkSize)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "F", "npy", "Export format: npy, arrow")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Output directory, created if missing")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 10000, "Rows per Arrow record batch")

	return cmd
}

func runExport(w io.Writer, path, format, dir string, chunkSize int) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := store.ReadMatrix()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	switch format {
	case "npy":
		if err := export.WriteNpy(dir, m); err != nil {
			return err
		}
		for _, f := range []string{export.GenosFile, export.SnpsFile, export.SnpsMapFile} {
			fmt.Fprintf(w, "wrote %s\n", filepath.Join(dir, f))
		}
	case "arrow":
		out := filepath.Join(dir, export.ArrowFile)
		if err := export.WriteArrow(out, m, chunkSize); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %s\n", out)
	}
	return nil
}
