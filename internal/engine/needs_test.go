package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

func TestComputeEssentialNeeds(t *testing.T) {
	tests := []struct {
		name   string
		counts models.PositionCounts
		want   EssentialNeeds
	}{
		{
			name:   "empty roster",
			counts: models.PositionCounts{},
			want:   EssentialNeeds{NeedQB: true, NeedTE: true, NeedDST: true, NeedK: true, NeededRB: 2, NeededWR: 2, NeedFlex: true},
		},
		{
			name:   "nil counts behave like empty",
			counts: nil,
			want:   EssentialNeeds{NeedQB: true, NeedTE: true, NeedDST: true, NeedK: true, NeededRB: 2, NeededWR: 2, NeedFlex: true},
		},
		{
			name:   "floors met but flex still open",
			counts: models.PositionCounts{models.RB: 2, models.WR: 2},
			want:   EssentialNeeds{NeedQB: true, NeedTE: true, NeedDST: true, NeedK: true, NeedFlex: true},
		},
		{
			name:   "flex closes at five",
			counts: models.PositionCounts{models.RB: 3, models.WR: 2},
			want:   EssentialNeeds{NeedQB: true, NeedTE: true, NeedDST: true, NeedK: true},
		},
		{
			name:   "surplus never goes negative",
			counts: models.PositionCounts{models.QB: 2, models.RB: 6, models.WR: 0, models.TE: 1, models.K: 1, models.DST: 1},
			want:   EssentialNeeds{NeededWR: 2},
		},
		{
			name:   "complete roster",
			counts: models.PositionCounts{models.QB: 1, models.RB: 3, models.WR: 3, models.TE: 1, models.K: 1, models.DST: 1},
			want:   EssentialNeeds{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeEssentialNeeds(tt.counts))
		})
	}
}

func TestComputeEssentialNeedsIsPure(t *testing.T) {
	counts := models.PositionCounts{models.QB: 1, models.RB: 1, models.WR: 3}
	first := ComputeEssentialNeeds(counts)
	second := ComputeEssentialNeeds(counts)
	assert.Equal(t, first, second)
	assert.Equal(t, models.PositionCounts{models.QB: 1, models.RB: 1, models.WR: 3}, counts)
}

func TestEssentialSlotsRemaining(t *testing.T) {
	for qb := 0; qb <= 2; qb++ {
		for rb := 0; rb <= 6; rb++ {
			for wr := 0; wr <= 6; wr++ {
				for k := 0; k <= 1; k++ {
					counts := models.PositionCounts{models.QB: qb, models.RB: rb, models.WR: wr, models.K: k, models.TE: 1, models.DST: 0}
					needs := ComputeEssentialNeeds(counts)

					want := needs.NeededRB + needs.NeededWR
					for _, b := range []bool{needs.NeedQB, needs.NeedTE, needs.NeedDST, needs.NeedK, needs.NeedFlex} {
						if b {
							want++
						}
					}
					got := EssentialSlotsRemaining(needs)
					if got != want || got < 0 {
						t.Fatalf("counts %v: slots = %d, want %d", counts, got, want)
					}
				}
			}
		}
	}
}

func TestEssentialSlotsRemainingStepByStep(t *testing.T) {
	counts := models.PositionCounts{models.QB: 0, models.RB: 1, models.WR: 1, models.TE: 0, models.K: 0, models.DST: 0}
	needs := ComputeEssentialNeeds(counts)

	require.True(t, needs.NeedQB)
	require.Equal(t, 1, needs.NeededRB)
	require.Equal(t, 1, needs.NeededWR)
	require.True(t, needs.NeedTE)
	require.True(t, needs.NeedFlex)
	require.True(t, needs.NeedK)
	require.True(t, needs.NeedDST)
	assert.Equal(t, 7, EssentialSlotsRemaining(needs))

	// seven open slots against two picks left is not an exact match
	assert.False(t, MustForceEssentialPick(14, needs, 16))
	err := CheckCapacity(14, needs, 16)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestMustForceEssentialPick(t *testing.T) {
	twoSlots := EssentialNeeds{NeedK: true, NeedDST: true}
	oneSlot := EssentialNeeds{NeedK: true}
	require.Equal(t, 2, EssentialSlotsRemaining(twoSlots))
	require.Equal(t, 1, EssentialSlotsRemaining(oneSlot))

	tests := []struct {
		name       string
		rosterSize int
		needs      EssentialNeeds
		capacity   int
		want       bool
	}{
		{"exact match forces", 14, twoSlots, 16, true},
		{"slack left does not force", 14, oneSlot, 16, false},
		{"more needs than picks does not force", 15, twoSlots, 16, false},
		{"nothing needed at the end", 16, EssentialNeeds{}, 16, true},
		{"unset capacity uses default", 14, twoSlots, 0, true},
		{"negative capacity uses default", 14, twoSlots, -3, true},
		{"explicit capacity honored", 8, twoSlots, 10, true},
		{"explicit capacity honored when not forced", 14, twoSlots, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MustForceEssentialPick(tt.rosterSize, tt.needs, tt.capacity))
		})
	}
}

func TestCheckCapacity(t *testing.T) {
	needs := EssentialNeeds{NeedK: true, NeedDST: true}
	assert.NoError(t, CheckCapacity(13, needs, 16))
	assert.NoError(t, CheckCapacity(14, needs, 16))
	assert.ErrorIs(t, CheckCapacity(15, needs, 16), ErrCapacityExceeded)
}

func TestMinimumCapacity(t *testing.T) {
	assert.Equal(t, 9, MinimumCapacity())
	assert.NoError(t, CheckCapacity(0, ComputeEssentialNeeds(nil), 9))
	assert.ErrorIs(t, CheckCapacity(0, ComputeEssentialNeeds(nil), 8), ErrCapacityExceeded)
}
