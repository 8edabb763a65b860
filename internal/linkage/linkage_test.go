package linkage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectMode(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		reference string
		blockSize int
		want      Mode
		wantErr   bool
	}{
		{"ipyrad denovo", "ipyrad_v.0.9.14", "pseudo-reference (only loci from de novo assembly)", 0, Inherited, false},
		{"ipyrad denovo ignores block size", "ipyrad_v.0.9.14", "pseudo-ref", 5000, Inherited, false},
		{"ipyrad reference no size", "ipyrad_v.0.9.14", "genome.fa", 0, Inherited, false},
		{"ipyrad reference with size", "ipyrad_v.0.9.14", "genome.fa", 5000, Windowed, false},
		{"other source with size", "bcftools", "", 10, Windowed, false},
		{"other source no size", "bcftools", "", 0, 0, true},
		{"no metadata no size", "", "", 0, 0, true},
		{"negative size", "bcftools", "", -1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectMode(tt.source, tt.reference, tt.blockSize)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectMode_MissingGrouping(t *testing.T) {
	_, err := SelectMode("GATK", "", 0)
	assert.ErrorIs(t, err, ErrMissingGrouping)
}

func TestInheritedBlocks(t *testing.T) {
	a := InheritedBlocks([]uint32{1, 1, 1, 2, 2})

	assert.Equal(t, []uint32{1, 1, 1, 2, 2}, a.Blocks)
	assert.Equal(t, []uint32{0, 1, 2, 0, 1}, a.Offsets)
	assert.Equal(t, 2, a.NBlocks)
}

func TestWindowedBlocks_SkipsEmptyWindow(t *testing.T) {
	// windows [5,15) [15,25) [25,35) [35,45); [25,35) is empty
	a := WindowedBlocks([]uint32{1, 1, 1, 1}, []uint32{5, 12, 19, 41}, 10)

	assert.Equal(t, []uint32{1, 1, 2, 3}, a.Blocks)
	assert.Equal(t, []uint32{0, 1, 0, 0}, a.Offsets)
	assert.Equal(t, 3, a.NBlocks)
}

func TestWindowedBlocks_SingleVariantScaffold(t *testing.T) {
	a := WindowedBlocks([]uint32{1}, []uint32{777}, 100)

	assert.Equal(t, []uint32{1}, a.Blocks)
	assert.Equal(t, []uint32{0}, a.Offsets)
	assert.Equal(t, 1, a.NBlocks)
}

func TestWindowedBlocks_IdsContinueAcrossScaffolds(t *testing.T) {
	scaffolds := []uint32{1, 1, 2, 2, 2}
	positions := []uint32{100, 250, 3, 4, 1000}

	a := WindowedBlocks(scaffolds, positions, 100)

	assert.Equal(t, []uint32{1, 2, 3, 3, 4}, a.Blocks)
	assert.Equal(t, []uint32{0, 0, 0, 1, 0}, a.Offsets)
	assert.Equal(t, 4, a.NBlocks)
}

func TestWindowedBlocks_FirstSeenScaffoldOrder(t *testing.T) {
	// scaffold 2 appears before scaffold 1 in the file
	scaffolds := []uint32{2, 1, 2}
	positions := []uint32{10, 10, 15}

	a := WindowedBlocks(scaffolds, positions, 100)

	assert.Equal(t, []uint32{1, 2, 1}, a.Blocks)
	assert.Equal(t, []uint32{0, 0, 1}, a.Offsets)
}

func TestWindowedBlocks_UnsortedPositions(t *testing.T) {
	a := WindowedBlocks([]uint32{1, 1, 1}, []uint32{41, 5, 12}, 10)

	assert.Equal(t, []uint32{2, 1, 1}, a.Blocks)
	assert.Equal(t, []uint32{0, 0, 1}, a.Offsets)
}

func TestWindowedBlocks_Monotonic(t *testing.T) {
	var scaffolds, positions []uint32
	for i := 0; i < 500; i++ {
		scaffolds = append(scaffolds, uint32(i/100+1))
		positions = append(positions, uint32(i%100*37+1))
	}

	a := WindowedBlocks(scaffolds, positions, 250)

	for i := 1; i < len(scaffolds); i++ {
		if scaffolds[i] != scaffolds[i-1] {
			assert.Equal(t, a.Blocks[i-1]+1, a.Blocks[i], "new scaffold starts a new block")
			continue
		}
		assert.GreaterOrEqual(t, a.Blocks[i], a.Blocks[i-1])
		if a.Blocks[i] == a.Blocks[i-1] {
			assert.Equal(t, a.Offsets[i-1]+1, a.Offsets[i])
		} else {
			assert.Equal(t, a.Blocks[i-1]+1, a.Blocks[i], "block ids must be dense")
			assert.Equal(t, uint32(0), a.Offsets[i])
		}
	}
}

func TestAssign(t *testing.T) {
	a, err := Assign(Inherited, []uint32{1, 2}, []uint32{9, 9}, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, a.Blocks)

	_, err = Assign(Windowed, []uint32{1}, []uint32{9}, 0)
	assert.ErrorIs(t, err, ErrMissingGrouping)

	_, err = Assign(Windowed, []uint32{1, 1}, []uint32{9}, 10)
	assert.Error(t, err)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "inherited", Inherited.String())
	assert.Equal(t, "windowed", Windowed.String())
	assert.Equal(t, "unknown", Mode(0).String())
}
