// Package export writes copies of a SNP matrix in formats read by
// analysis tools outside Go.
package export

import (
	"fmt"
	"path/filepath"

	"github.com/kshedden/gonpy"

	"github.com/inodb/vcf2snps/internal/matrix"
)

// Numpy file names written by WriteNpy.
const (
	GenosFile   = "genos.npy"
	SnpsFile    = "snps.npy"
	SnpsMapFile = "snpsmap.npy"
)

// WriteNpy writes the three matrix arrays as row-major .npy files in dir.
func WriteNpy(dir string, m *matrix.Matrix) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if err := writeUint8(filepath.Join(dir, GenosFile), []int{m.NSNPs, m.NSamples, 2}, m.Genos); err != nil {
		return err
	}
	if err := writeUint8(filepath.Join(dir, SnpsFile), []int{m.NSamples, m.NSNPs}, m.Snps); err != nil {
		return err
	}

	w, err := gonpy.NewFileWriter(filepath.Join(dir, SnpsMapFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", SnpsMapFile, err)
	}
	w.Shape = []int{m.NSNPs, matrix.MapWidth}
	if err := w.WriteUint32(m.SnpsMap); err != nil {
		return fmt.Errorf("write %s: %w", SnpsMapFile, err)
	}
	return nil
}

func writeUint8(path string, shape []int, data []uint8) error {
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	w.Shape = shape
	if err := w.WriteUint8(data); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
