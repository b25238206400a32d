package game

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/domino14/htmf/board"
	"github.com/domino14/htmf/cellset"
)

type GameMode string

const (
	ModeDrafting GameMode = "drafting"
	ModePlaying  GameMode = "playing"
)

// GameStateJSON is the wire view of a State consumed by front ends.
type GameStateJSON struct {
	LastMoveValid bool      `json:"last_move_valid"`
	ModeType      GameMode  `json:"mode_type"`
	NPlayers      int       `json:"nplayers"`
	ActivePlayer  *int      `json:"active_player"`
	Scores        []int     `json:"scores"`
	Turn          int       `json:"turn"`
	Board         BoardJSON `json:"board"`
}

// BoardJSON lists cells as plain integers, one list per player.
type BoardJSON struct {
	Fish          []int   `json:"fish"`
	Penguins      [][]int `json:"penguins"`
	Claimed       [][]int `json:"claimed"`
	PossibleMoves []int   `json:"possible_moves,omitempty"`
}

func cellsToInts(s cellset.CellSet) []int {
	return lo.Map(s.Cells(), func(c uint8, _ int) int { return int(c) })
}

// ToJSON builds the wire view of s.
func (s *State) ToJSON() *GameStateJSON {
	mode := ModeDrafting
	if s.FinishedDrafting() {
		mode = ModePlaying
	}
	var active *int
	if p, ok := s.ActivePlayer(); ok {
		active = &p
	}
	layout := s.Board.FishLayout()
	bj := BoardJSON{
		Fish:     layout[:],
		Penguins: make([][]int, s.NPlayers),
		Claimed:  make([][]int, s.NPlayers),
	}
	for p := 0; p < s.NPlayers; p++ {
		bj.Penguins[p] = cellsToInts(s.Board.Penguins[p])
		bj.Claimed[p] = cellsToInts(s.Board.Claimed[p])
	}
	return &GameStateJSON{
		LastMoveValid: true,
		ModeType:      mode,
		NPlayers:      s.NPlayers,
		ActivePlayer:  active,
		Scores:        s.Scores(),
		Turn:          s.Turn,
		Board:         bj,
	}
}

// SelectCell fills in possible_moves for a front end highlighting the
// destinations of the penguin on src.
func (j *GameStateJSON) SelectCell(s *State, src uint8) {
	j.Board.PossibleMoves = nil
	if src >= NumCells || !s.FinishedDrafting() || !s.Board.AllPenguins().Contains(src) {
		return
	}
	j.Board.PossibleMoves = cellsToInts(s.Board.Moves(src))
}

func (j *GameStateJSON) String() string {
	bts, err := json.Marshal(j)
	if err != nil {
		return fmt.Sprintf("<unmarshalable state: %v>", err)
	}
	return string(bts)
}

func intsToCells(player int, ints []int) (cellset.CellSet, error) {
	var out cellset.CellSet
	for _, c := range ints {
		if c < 0 || c >= NumCells {
			return 0, fmt.Errorf("player %d: cell %d out of range", player, c)
		}
		out = out.Insert(uint8(c))
	}
	return out, nil
}

// ToState converts the wire view back into a State and checks that the board
// is consistent.
func (j *GameStateJSON) ToState() (*State, error) {
	if !validPlayerCount(j.NPlayers) {
		return nil, ErrBadPlayerCount
	}
	if len(j.Board.Fish) != NumCells {
		return nil, fmt.Errorf("expected %d fish values, got %d", NumCells, len(j.Board.Fish))
	}
	if len(j.Board.Penguins) > j.NPlayers || len(j.Board.Claimed) > j.NPlayers {
		return nil, fmt.Errorf("more player lists than players (%d)", j.NPlayers)
	}
	var layout [NumCells]int
	copy(layout[:], j.Board.Fish)
	b, err := board.NewFromFish(layout)
	if err != nil {
		return nil, err
	}
	for p, cells := range j.Board.Penguins {
		if b.Penguins[p], err = intsToCells(p, cells); err != nil {
			return nil, err
		}
	}
	for p, cells := range j.Board.Claimed {
		if b.Claimed[p], err = intsToCells(p, cells); err != nil {
			return nil, err
		}
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board: %w", err)
	}
	if j.Turn < 0 {
		return nil, fmt.Errorf("negative turn %d", j.Turn)
	}
	st := &State{NPlayers: j.NPlayers, Turn: j.Turn, Board: b}
	if err := st.checkPlayable(); err != nil {
		return nil, fmt.Errorf("unplayable state: %w", err)
	}
	return st, nil
}

// MarshalJSON lets a State be written directly in its wire form.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var j GameStateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	st, err := j.ToState()
	if err != nil {
		return err
	}
	*s = *st
	return nil
}
