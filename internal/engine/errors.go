package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/rules"
)

// ErrTurnInFlight is returned under the reject policy when the session is
// already running a turn.
var ErrTurnInFlight = errors.New("a turn is already in progress for this session")

// PersistenceError means the turn completed but its snapshot was not saved.
// It is returned alongside a usable TurnResult.
type PersistenceError struct {
	SessionID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("session %s: checkpoint not saved: %v", e.SessionID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsWarning reports whether err still comes with a valid result.
func IsWarning(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// Explain turns an engine error into a sentence fit for the player.
func Explain(err error) string {
	var (
		re *rules.ResolutionError
		pe *PersistenceError
		ve *models.ValidationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &re):
		return fmt.Sprintf("That action could not be resolved (%s). Try describing it differently.", re.Reason)
	case errors.As(err, &pe):
		return "Your turn was played, but it could not be saved. Progress since the last save may be lost."
	case errors.Is(err, ErrTurnInFlight):
		return "Still resolving your previous action. Please wait a moment."
	case errors.As(err, &ve):
		return fmt.Sprintf("This adventure is missing %v and must be set up again.", ve.Missing)
	case errors.Is(err, checkpoint.ErrNotFound), errors.Is(err, checkpoint.ErrIncompatibleSnapshot):
		return "No saved adventure was found for this session."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The turn was interrupted before it finished. Nothing was changed."
	}
	return "Something went wrong and the turn was not played. Nothing was changed."
}
