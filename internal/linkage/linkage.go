// Package linkage assigns variants to linkage blocks, the units that
// downstream resampling keeps or drops together.
//
// Two modes exist. Inherited mode uses each scaffold as one block, which is
// right for de-novo RAD assemblies where a scaffold is a single locus.
// Windowed mode cuts each scaffold into fixed-width, non-overlapping
// position windows.
package linkage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingGrouping is returned when neither inherited grouping nor a
// block size is available.
var ErrMissingGrouping = errors.New("linkage block size required for this VCF")

// Mode selects how blocks are assigned.
type Mode int

const (
	// Inherited makes every scaffold a single block.
	Inherited Mode = iota + 1
	// Windowed splits scaffolds into fixed-width position windows.
	Windowed
)

func (m Mode) String() string {
	switch m {
	case Inherited:
		return "inherited"
	case Windowed:
		return "windowed"
	}
	return "unknown"
}

// SelectMode picks the grouping mode from the VCF ##source= and
// ##reference= values and the configured block size (0 when unset).
func SelectMode(source, reference string, blockSize int) (Mode, error) {
	if blockSize < 0 {
		return 0, fmt.Errorf("invalid linkage block size %d", blockSize)
	}

	fromIpyrad := strings.Contains(strings.ToLower(source), "ipyrad")
	denovo := strings.Contains(strings.ToLower(reference), "pseudo-ref")

	switch {
	case fromIpyrad && denovo:
		return Inherited, nil
	case fromIpyrad && blockSize == 0:
		return Inherited, nil
	case blockSize > 0:
		return Windowed, nil
	}
	return 0, fmt.Errorf("%w (source %q)", ErrMissingGrouping, source)
}

// Assignment holds the block id and in-block offset of every variant,
// indexed like the input.
type Assignment struct {
	Blocks  []uint32
	Offsets []uint32
	NBlocks int
}

// Assign groups variants using mode. scaffolds holds 1-based scaffold ids
// numbered in first-seen order; positions is only read in Windowed mode.
func Assign(mode Mode, scaffolds, positions []uint32, blockSize int) (*Assignment, error) {
	if len(scaffolds) != len(positions) {
		return nil, fmt.Errorf("scaffold and position counts differ: %d != %d", len(scaffolds), len(positions))
	}
	switch mode {
	case Inherited:
		return InheritedBlocks(scaffolds), nil
	case Windowed:
		if blockSize <= 0 {
			return nil, ErrMissingGrouping
		}
		return WindowedBlocks(scaffolds, positions, blockSize), nil
	}
	return nil, fmt.Errorf("unknown linkage mode %d", mode)
}

// InheritedBlocks uses the scaffold id as block id and the variant's rank
// within its scaffold as offset.
func InheritedBlocks(scaffolds []uint32) *Assignment {
	a := &Assignment{
		Blocks:  make([]uint32, len(scaffolds)),
		Offsets: make([]uint32, len(scaffolds)),
	}

	next := make(map[uint32]uint32)
	for i, s := range scaffolds {
		a.Blocks[i] = s
		a.Offsets[i] = next[s]
		next[s]++
	}
	a.NBlocks = len(next)
	return a
}

// WindowedBlocks walks each scaffold's variants in position order through
// windows [start, start+size), starting at the scaffold's lowest position.
// Only non-empty windows get a block id, so ids stay dense.
func WindowedBlocks(scaffolds, positions []uint32, size int) *Assignment {
	a := &Assignment{
		Blocks:  make([]uint32, len(scaffolds)),
		Offsets: make([]uint32, len(scaffolds)),
	}

	var block uint32
	for _, members := range groupByScaffold(scaffolds) {
		sort.SliceStable(members, func(i, j int) bool {
			return positions[members[i]] < positions[members[j]]
		})
		block = windowScaffold(a, members, positions, uint64(size), block)
	}
	a.NBlocks = int(block)
	return a
}

// windowScaffold assigns blocks for one scaffold's position-sorted members
// and returns the last block id used.
func windowScaffold(a *Assignment, members []int, positions []uint32, size uint64, block uint32) uint32 {
	start := uint64(positions[members[0]])
	var offset uint32
	open := false

	for _, idx := range members {
		pos := uint64(positions[idx])
		if pos >= start+size {
			// skip whole windows, empty ones included
			start += size * ((pos - start) / size)
			open = false
		}
		if !open {
			block++
			offset = 0
			open = true
		}
		a.Blocks[idx] = block
		a.Offsets[idx] = offset
		offset++
	}
	return block
}

// groupByScaffold returns variant indexes per scaffold, scaffolds in
// first-seen order and variants in input order.
func groupByScaffold(scaffolds []uint32) [][]int {
	var groups [][]int
	slot := make(map[uint32]int)
	for i, s := range scaffolds {
		g, ok := slot[s]
		if !ok {
			g = len(groups)
			slot[s] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
