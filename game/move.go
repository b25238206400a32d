package game

import (
	"fmt"
	"strconv"
	"strings"
)

// MoveKind tells a drafting placement from a movement.
type MoveKind uint8

const (
	MoveKindPlace MoveKind = iota
	MoveKindMove
)

// Move is an edge between two game states. Src is unused for placements.
type Move struct {
	Kind MoveKind
	Src  uint8
	Dst  uint8
}

// Place puts a new penguin on dst during drafting.
func Place(dst uint8) Move {
	return Move{Kind: MoveKindPlace, Dst: dst}
}

// Movement moves the penguin on src to dst.
func Movement(src, dst uint8) Move {
	return Move{Kind: MoveKindMove, Src: src, Dst: dst}
}

func (m Move) String() string {
	if m.Kind == MoveKindPlace {
		return fmt.Sprintf("place %d", m.Dst)
	}
	return fmt.Sprintf("move %d %d", m.Src, m.Dst)
}

// ParseMove reads the String form of a move back.
func ParseMove(s string) (Move, error) {
	fields := strings.Fields(s)
	cell := func(f string) (uint8, error) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0, err
		}
		if n < 0 || n >= NumCells {
			return 0, fmt.Errorf("cell %d out of range", n)
		}
		return uint8(n), nil
	}
	switch {
	case len(fields) == 2 && fields[0] == "place":
		dst, err := cell(fields[1])
		if err != nil {
			return Move{}, fmt.Errorf("parsing %q: %w", s, err)
		}
		return Place(dst), nil
	case len(fields) == 3 && fields[0] == "move":
		src, err := cell(fields[1])
		if err != nil {
			return Move{}, fmt.Errorf("parsing %q: %w", s, err)
		}
		dst, err := cell(fields[2])
		if err != nil {
			return Move{}, fmt.Errorf("parsing %q: %w", s, err)
		}
		return Movement(src, dst), nil
	}
	return Move{}, fmt.Errorf("unrecognized move %q", s)
}
