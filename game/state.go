// Package game wraps a Board in the turn and phase rules: snake-order
// drafting followed by round-robin movement until no penguin can move.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/htmf/board"
	"github.com/domino14/htmf/cellset"
)

const NumCells = board.NumCells

// ErrBadPlayerCount is returned for tables outside 2 to 4 players.
var ErrBadPlayerCount = errors.New("number of players must be between 2 and 4")

// draftingLimits is the number of placement turns for each table size.
var draftingLimits = [board.MaxPlayers + 1]int{2: 8, 3: 9, 4: 8}

func validPlayerCount(n int) bool {
	return n >= 2 && n <= board.MaxPlayers
}

// State is a complete game position. It is a plain value; copying it gives an
// independent game.
type State struct {
	NPlayers int
	Turn     int
	Board    board.Board
}

// New starts a game for nplayers on a freshly shuffled board.
func New(nplayers int, rng *rand.Rand) (*State, error) {
	if !validPlayerCount(nplayers) {
		return nil, ErrBadPlayerCount
	}
	return &State{NPlayers: nplayers, Board: board.New(rng)}, nil
}

// NewTwoPlayer starts a two player game.
func NewTwoPlayer(rng *rand.Rand) *State {
	s, err := New(2, rng)
	if err != nil {
		panic(err)
	}
	return s
}

// NewFromBoard starts a game on a given board at turn 0. The board must
// hold a one-fish cell for every placement.
func NewFromBoard(nplayers int, b board.Board) (*State, error) {
	if !validPlayerCount(nplayers) {
		return nil, ErrBadPlayerCount
	}
	s := &State{NPlayers: nplayers, Board: b}
	if err := s.checkPlayable(); err != nil {
		return nil, err
	}
	return s, nil
}

// checkPlayable rejects positions where a player is to move but has no
// legal move: too few free one-fish cells for the placements left, or a
// stranded penguin that was never reaped after drafting.
func (s *State) checkPlayable() error {
	if !s.FinishedDrafting() {
		need := s.DraftingTurns() - s.Turn
		if have := s.DraftableCells().Len(); have < need {
			return fmt.Errorf("%d placements remain but only %d one-fish cells are free", need, have)
		}
		return nil
	}
	if c, ok := s.Board.Stranded().Lowest(); ok {
		return fmt.Errorf("penguin on cell %d has no moves left", c)
	}
	return nil
}

func (s *State) Clone() *State {
	c := *s
	return &c
}

// DraftingTurns is the number of placements made before movement starts.
func (s *State) DraftingTurns() int {
	return draftingLimits[s.NPlayers]
}

func (s *State) FinishedDrafting() bool {
	return s.Turn >= draftingLimits[s.NPlayers]
}

// GameOver is true once drafting is done and no penguin can move.
func (s *State) GameOver() bool {
	return s.FinishedDrafting() && s.Board.AllPenguins().IsEmpty()
}

// ActivePlayer returns the player to move. ok is false when the game is over.
func (s *State) ActivePlayer() (player int, ok bool) {
	if s.GameOver() {
		return 0, false
	}
	n := s.NPlayers
	if s.FinishedDrafting() {
		p := s.Turn % n
		for s.Board.Penguins[p].IsEmpty() {
			p = (p + 1) % n
		}
		return p, true
	}
	if (s.Turn/n)%2 == 1 {
		// snake back on odd rounds
		p := (-s.Turn - 1) % n
		if p < 0 {
			p += n
		}
		return p, true
	}
	return s.Turn % n, true
}

func (s *State) activeOrErr() (int, error) {
	p, ok := s.ActivePlayer()
	if !ok {
		return 0, &board.IllegalMoveError{Player: -1, Message: "the game is over"}
	}
	return p, nil
}

// PlacePenguin drafts a penguin for the active player onto an unclaimed
// one-fish cell.
func (s *State) PlacePenguin(cell uint8) error {
	p, err := s.activeOrErr()
	if err != nil {
		return err
	}
	if s.FinishedDrafting() {
		return &board.IllegalMoveError{Player: p, Message: "drafting phase is over"}
	}
	if cell >= NumCells || s.Board.NumFish(cell) != 1 {
		return &board.IllegalMoveError{Player: p, Message: "penguins must be placed on a cell with one fish"}
	}
	if err := s.Board.ClaimCell(p, cell); err != nil {
		return err
	}
	s.Turn++
	if s.FinishedDrafting() {
		s.settle()
	}
	return nil
}

// MovePenguin moves one of the active player's penguins.
func (s *State) MovePenguin(src, dst uint8) error {
	p, err := s.activeOrErr()
	if err != nil {
		return err
	}
	if !s.FinishedDrafting() {
		return &board.IllegalMoveError{Player: p, Message: "drafting phase is not over"}
	}
	if src >= NumCells || dst >= NumCells {
		return &board.IllegalMoveError{Player: p, Message: fmt.Sprintf("cell out of range: %d -> %d", src, dst)}
	}
	if err := s.Board.MovePenguin(p, src, dst); err != nil {
		return err
	}
	// A move can leave a penguin alone on an iceberg without splitting
	// anything, so every move is followed by a full prune.
	s.settle()
	s.Turn++
	return nil
}

// settle prunes until nothing changes, then reaps stranded penguins. It runs
// when drafting ends and after every movement.
func (s *State) settle() {
	s.prune()
	s.Board.Reap()
}

func (s *State) prune() {
	rounds := 0
	for s.Board.Prune() {
		rounds++
	}
	if rounds > 0 {
		log.Debug().Int("turn", s.Turn).Int("rounds", rounds).Msg("pruned-icebergs")
	}
}

// ApplyAction plays a Move of either kind.
func (s *State) ApplyAction(m Move) error {
	switch m.Kind {
	case MoveKindPlace:
		return s.PlacePenguin(m.Dst)
	case MoveKindMove:
		return s.MovePenguin(m.Src, m.Dst)
	}
	return fmt.Errorf("unknown move kind %d", m.Kind)
}

// DraftableCells are the unclaimed one-fish cells.
func (s *State) DraftableCells() cellset.CellSet {
	return s.Board.Fish[0] &^ s.Board.AllClaimed()
}

// LegalMoves lists every move available to the active player, in ascending
// cell order. It is empty once the game is over.
func (s *State) LegalMoves() []Move {
	return s.AppendLegalMoves(nil)
}

// AppendLegalMoves appends the legal moves to buf, so that callers in a hot
// loop can reuse one buffer.
func (s *State) AppendLegalMoves(buf []Move) []Move {
	p, ok := s.ActivePlayer()
	if !ok {
		return buf
	}
	if !s.FinishedDrafting() {
		s.DraftableCells().ForEach(func(c uint8) bool {
			buf = append(buf, Place(c))
			return true
		})
		return buf
	}
	s.Board.Penguins[p].ForEach(func(src uint8) bool {
		s.Board.Moves(src).ForEach(func(dst uint8) bool {
			buf = append(buf, Movement(src, dst))
			return true
		})
		return true
	})
	return buf
}

// IsLegal reports whether m may be played now.
func (s *State) IsLegal(m Move) bool {
	p, ok := s.ActivePlayer()
	if !ok {
		return false
	}
	switch m.Kind {
	case MoveKindPlace:
		return !s.FinishedDrafting() && m.Dst < NumCells && s.DraftableCells().Contains(m.Dst)
	case MoveKindMove:
		return s.FinishedDrafting() && s.Board.IsLegalMove(p, m.Src, m.Dst)
	}
	return false
}

// Scores returns each player's fish total.
func (s *State) Scores() []int {
	return lo.Times(s.NPlayers, s.Board.Score)
}

// Winners returns the players sharing the top score.
func (s *State) Winners() []int {
	scores := s.Scores()
	best := lo.Max(scores)
	return lo.Filter(lo.Range(s.NPlayers), func(p int, _ int) bool {
		return scores[p] == best
	})
}
