package game

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"

	"github.com/domino14/htmf/board"
)

var playerColors = [board.MaxPlayers]string{"#E06C75", "#61AFEF", "#98C379", "#E5C07B"}

// ToDisplayText renders the board as rows of hexes. Unclaimed cells show
// their fish count, claimed cells show the owner's number and penguins are
// marked with a P. Even rows are indented by half a cell.
func (s *State) ToDisplayText(profile termenv.Profile) string {
	var sb strings.Builder
	b := &s.Board
	idx := uint8(0)
	for row := 0; row < board.NumRows; row++ {
		rowLen := board.OddRowLen
		if row%2 == 0 {
			rowLen = board.EvenRowLen
			sb.WriteString("  ")
		}
		for col := 0; col < rowLen; col++ {
			sb.WriteString(cellText(b, idx, profile))
			if col != rowLen-1 {
				sb.WriteString(" ")
			}
			idx++
		}
		sb.WriteString("\n")
	}
	scores := s.Scores()
	for p := 0; p < s.NPlayers; p++ {
		label := profile.String(fmt.Sprintf("player %d", p)).
			Foreground(profile.Color(playerColors[p]))
		fmt.Fprintf(&sb, "%s: %d fish, %d penguins\n", label, scores[p], b.Penguins[p].Len())
	}
	if p, ok := s.ActivePlayer(); ok {
		phase := "moving"
		if !s.FinishedDrafting() {
			phase = "drafting"
		}
		fmt.Fprintf(&sb, "turn %d, player %d %s\n", s.Turn, p, phase)
	} else {
		sb.WriteString("game over\n")
	}
	return sb.String()
}

func cellText(b *board.Board, idx uint8, profile termenv.Profile) string {
	owner, claimed := b.Owner(idx)
	if !claimed {
		return fmt.Sprintf(" %d ", b.NumFish(idx))
	}
	text := fmt.Sprintf("[%d]", owner)
	if b.Penguins[owner].Contains(idx) {
		text = fmt.Sprintf("P%d ", owner)
	}
	return profile.String(text).Foreground(profile.Color(playerColors[owner])).String()
}
