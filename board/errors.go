package board

import "fmt"

// IllegalMoveError is returned when a player attempts a move the rules do
// not allow. The board is left unchanged.
type IllegalMoveError struct {
	Player  int
	Message string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move by player %d: %s", e.Player, e.Message)
}
