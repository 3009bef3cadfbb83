package tenant

import (
	"fmt"

	"storedesk/internal/apperr"
	"storedesk/internal/domain/stores"
)

// transitions lists the legal status moves. cancelled is terminal.
var transitions = map[stores.Status][]stores.Status{
	stores.StatusActive:    {stores.StatusSuspended, stores.StatusExpired, stores.StatusCancelled},
	stores.StatusSuspended: {stores.StatusActive, stores.StatusExpired, stores.StatusCancelled},
	stores.StatusExpired:   {stores.StatusActive, stores.StatusSuspended, stores.StatusCancelled},
	stores.StatusCancelled: nil,
}

// CheckTransition returns nil when from -> to is allowed. Same-state moves are allowed.
func CheckTransition(from, to stores.Status) error {
	if !to.Valid() {
		return apperr.Validation(fmt.Sprintf("invalid store status %q", to))
	}
	if from == to {
		return nil
	}
	for _, s := range transitions[from] {
		if s == to {
			return nil
		}
	}
	return apperr.New(apperr.KindConflict, apperr.CodeInvalidTransition,
		fmt.Sprintf("store cannot move from %s to %s", from, to))
}
