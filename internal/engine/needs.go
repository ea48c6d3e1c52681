package engine

import (
	"errors"
	"fmt"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

// DefaultRosterCapacity is used whenever no explicit capacity is supplied
const DefaultRosterCapacity = 16

// Per-position floors a finished roster must satisfy
const (
	minRB   = 2
	minWR   = 2
	minFlex = 5 // RB + WR combined
)

// ErrCapacityExceeded means more essential slots remain than picks are left to fill them
var ErrCapacityExceeded = errors.New("essential roster slots exceed remaining capacity")

// EssentialNeeds is the unmet roster requirement set at one point in a draft
type EssentialNeeds struct {
	NeedQB   bool `json:"needQB"`
	NeedTE   bool `json:"needTE"`
	NeedDST  bool `json:"needDST"`
	NeedK    bool `json:"needK"`
	NeededRB int  `json:"neededRB"`
	NeededWR int  `json:"neededWR"`
	NeedFlex bool `json:"needFlex"`
}

// ComputeEssentialNeeds derives the unmet essential slots from a position count snapshot.
// Missing positions count as zero.
func ComputeEssentialNeeds(counts models.PositionCounts) EssentialNeeds {
	rb := counts[models.RB]
	wr := counts[models.WR]
	return EssentialNeeds{
		NeedQB:   counts[models.QB] == 0,
		NeedTE:   counts[models.TE] == 0,
		NeedDST:  counts[models.DST] == 0,
		NeedK:    counts[models.K] == 0,
		NeededRB: max(0, minRB-rb),
		NeededWR: max(0, minWR-wr),
		NeedFlex: rb+wr < minFlex,
	}
}

// EssentialSlotsRemaining counts each true boolean need once plus the RB and WR shortfalls
func EssentialSlotsRemaining(needs EssentialNeeds) int {
	slots := needs.NeededRB + needs.NeededWR
	for _, need := range []bool{needs.NeedQB, needs.NeedTE, needs.NeedDST, needs.NeedK, needs.NeedFlex} {
		if need {
			slots++
		}
	}
	return slots
}

// ResolveCapacity returns capacity, or DefaultRosterCapacity when it is unset
func ResolveCapacity(capacity int) int {
	if capacity <= 0 {
		return DefaultRosterCapacity
	}
	return capacity
}

// MustForceEssentialPick reports whether the next pick has to fill an essential slot.
// It fires only when the open essential slots exactly match the picks left.
func MustForceEssentialPick(rosterSize int, needs EssentialNeeds, capacity int) bool {
	remaining := ResolveCapacity(capacity) - rosterSize
	return EssentialSlotsRemaining(needs) == remaining
}

// CheckCapacity returns an error wrapping ErrCapacityExceeded when the remaining picks
// can no longer cover every essential slot
func CheckCapacity(rosterSize int, needs EssentialNeeds, capacity int) error {
	capacity = ResolveCapacity(capacity)
	remaining := capacity - rosterSize
	slots := EssentialSlotsRemaining(needs)
	if slots > remaining {
		return fmt.Errorf("%d essential slots open with %d of %d picks left: %w",
			slots, remaining, capacity, ErrCapacityExceeded)
	}
	return nil
}

// MinimumCapacity is the smallest roster that can satisfy every floor starting from empty
func MinimumCapacity() int {
	return EssentialSlotsRemaining(ComputeEssentialNeeds(nil))
}
