package duckdb

import (
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Source records where a database came from and how it was grouped.
type Source struct {
	File FileFingerprint

	FormatSource string // VCF ##source= value
	Reference    string // VCF ##reference= value
	BlockSize    int    // linkage window width, 0 for inherited grouping
	Mode         string // linkage mode name
}

// formatModTime renders a modification time so that it survives a round
// trip through the database exactly.
func formatModTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Matches reports whether fp describes the same file content as the
// recorded source, judged by size and modification time.
func (src *Source) Matches(fp FileFingerprint) bool {
	return src.File.Size == fp.Size &&
		formatModTime(src.File.ModTime) == formatModTime(fp.ModTime)
}
