package game

import (
	"github.com/domino14/htmf/board"
	"github.com/domino14/htmf/hex"
)

const (
	// NumFeaturePlanes is the number of per-cell input planes fed to a
	// policy/value model.
	NumFeaturePlanes = 8
	NumFeatures      = NumFeaturePlanes * NumCells

	// MaxRayLength is the longest possible straight move.
	MaxRayLength = 7

	// Movement policies have one slot per (penguin, direction, distance).
	movementSlotsPerPenguin = int(hex.NumDirections) * MaxRayLength
	MovementPolicySize      = board.MaxPlayers * movementSlotsPerPenguin
	DraftingPolicySize      = NumCells
)

// Feature planes, in order.
const (
	planeOneFish = iota
	planeTwoFish
	planeThreeFish
	planeMyPenguins
	planeTheirPenguins
	planeMyClaimed
	planeTheirClaimed
	planeDrafting
)

// Features encodes the position from player's point of view as 8 planes of
// 60 cells. Every other player counts as "the opponent".
func (s *State) Features(player int) []float32 {
	feats := make([]float32, NumFeatures)
	b := &s.Board
	setPlane := func(plane int, cells uint64) {
		base := plane * NumCells
		for c := 0; c < NumCells; c++ {
			if cells&(1<<c) != 0 {
				feats[base+c] = 1
			}
		}
	}
	setPlane(planeOneFish, uint64(b.Fish[0]))
	setPlane(planeTwoFish, uint64(b.Fish[1]))
	setPlane(planeThreeFish, uint64(b.Fish[2]))
	setPlane(planeMyPenguins, uint64(b.Penguins[player]))
	setPlane(planeTheirPenguins, uint64(b.AllPenguins()&^b.Penguins[player]))
	setPlane(planeMyClaimed, uint64(b.Claimed[player]))
	setPlane(planeTheirClaimed, uint64(b.AllClaimed()&^b.Claimed[player]))
	if !s.FinishedDrafting() {
		for c := 0; c < NumCells; c++ {
			feats[planeDrafting*NumCells+c] = 1
		}
	}
	return feats
}

// PolicySize is the length of the logits vector for the current phase.
func (s *State) PolicySize() int {
	if s.FinishedDrafting() {
		return MovementPolicySize
	}
	return DraftingPolicySize
}

// PolicyIndex maps a move to its slot in the policy logits. Drafting moves
// use the cell index. Movements use rank*42 + direction*7 + distance-1,
// where rank is the source penguin's position among the active player's
// penguins in ascending cell order. ok is false for moves that do not fit
// the current phase.
func (s *State) PolicyIndex(m Move) (int, bool) {
	if m.Kind == MoveKindPlace {
		if s.FinishedDrafting() || m.Dst >= NumCells {
			return 0, false
		}
		return int(m.Dst), true
	}
	p, ok := s.ActivePlayer()
	if !ok || !s.FinishedDrafting() {
		return 0, false
	}
	penguins := s.Board.Penguins[p]
	if !penguins.Contains(m.Src) {
		return 0, false
	}
	// rank = number of this player's penguins on lower cells
	rank := (penguins & (1<<m.Src - 1)).Len()
	dir, dist, ok := hex.DirectionTo(board.CellCube(m.Src), board.CellCube(m.Dst))
	if !ok || dist > MaxRayLength {
		return 0, false
	}
	return rank*movementSlotsPerPenguin + int(dir)*MaxRayLength + dist - 1, true
}
