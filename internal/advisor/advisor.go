package advisor

import (
	"context"
	"errors"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

// DefaultBoardSize is how many of the best available players an advisor is shown
const DefaultBoardSize = 15

// Status classifies an advisory call
type Status string

const (
	StatusOK       Status = "ok"
	StatusDisabled Status = "disabled"
	StatusTimeout  Status = "timeout"
	StatusFailed   Status = "failed"
	StatusInvalid  Status = "invalid-response"
)

// ErrDisabled is carried by outcomes from an advisor that is switched off
var ErrDisabled = errors.New("advisor disabled")

// Purpose tells the advisor whose pick it is making
type Purpose string

const (
	PurposeRecommend Purpose = "recommend"
	PurposeMockPick  Purpose = "mock-pick"
)

// Request is everything an advisor sees for one pick
type Request struct {
	Purpose   Purpose               `json:"purpose"`
	Settings  models.DraftSettings  `json:"settings"`
	Team      int                   `json:"team"`
	Roster    []models.Player       `json:"roster"`
	Available []models.TieredPlayer `json:"available"`
	Blocked   []string              `json:"blocked"`
}

// Outcome is the explicit result of an advisory call. Callers fall back to the
// deterministic engine whenever OK is false.
type Outcome struct {
	PlayerName  string
	Explanation string
	Status      Status
	Err         error
}

// OK reports whether the advisor produced a usable suggestion
func (o Outcome) OK() bool {
	return o.Status == StatusOK && o.PlayerName != ""
}

// Advisor suggests a pick. Implementations never panic and always return an Outcome.
type Advisor interface {
	Advise(ctx context.Context, req Request) Outcome
}

// Disabled is the advisor used when no advisory service is configured
type Disabled struct{}

func (Disabled) Advise(context.Context, Request) Outcome {
	return Outcome{Status: StatusDisabled, Err: ErrDisabled}
}

// Func adapts a function to the Advisor interface
type Func func(ctx context.Context, req Request) Outcome

func (f Func) Advise(ctx context.Context, req Request) Outcome {
	return f(ctx, req)
}

// TopAvailable returns at most n players from the front of a sorted board
func TopAvailable(available []models.TieredPlayer, n int) []models.TieredPlayer {
	if n <= 0 {
		n = DefaultBoardSize
	}
	if len(available) <= n {
		return available
	}
	return available[:n]
}
