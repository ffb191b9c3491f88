package domain

import (
	"fmt"
	"math"
	"slices"
)

// Player identifies a side. Player0 always moves first.
type Player int

const (
	NoPlayer Player = iota - 1
	Player0
	Player1
)

// Opponent returns the other side.
func (p Player) Opponent() Player {
	if p == Player0 {
		return Player1
	}
	return Player0
}

func (p Player) String() string {
	switch p {
	case Player0:
		return "o"
	case Player1:
		return "x"
	default:
		return "_"
	}
}

// BoardView is the read-only board access handed to renderers and move
// sources.
type BoardView interface {
	Size() int
	Dimension() int
	NumCells() int
	At(cell int) Player
}

// Board is an N^dim grid stored row-major, with the unclaimed cells kept in
// ascending order.
type Board struct {
	size      int
	dim       int
	cells     []Player
	remaining []int
}

// NewBoard returns an empty board.
func NewBoard(dim, size int) (*Board, error) {
	if err := validateShape(dim, size); err != nil {
		return nil, err
	}
	n, _ := CellCount(dim, size)
	b := &Board{
		size:      size,
		dim:       dim,
		cells:     make([]Player, n),
		remaining: make([]int, n),
	}
	for i := range b.cells {
		b.cells[i] = NoPlayer
		b.remaining[i] = i
	}
	return b, nil
}

func (b *Board) Size() int      { return b.size }
func (b *Board) Dimension() int { return b.dim }
func (b *Board) NumCells() int  { return len(b.cells) }

// At returns the occupant of cell, NoPlayer for unclaimed or out of range
// cells.
func (b *Board) At(cell int) Player {
	if cell < 0 || cell >= len(b.cells) {
		return NoPlayer
	}
	return b.cells[cell]
}

// Remaining returns a copy of the unclaimed cells in ascending order.
func (b *Board) Remaining() []int {
	return slices.Clone(b.remaining)
}

// Claimed returns how many cells are occupied.
func (b *Board) Claimed() int {
	return len(b.cells) - len(b.remaining)
}

// IsFull reports whether no unclaimed cell is left.
func (b *Board) IsFull() bool {
	return len(b.remaining) == 0
}

// claim marks cell as held by p. The board is left untouched on error.
func (b *Board) claim(cell int, p Player) error {
	i, ok := slices.BinarySearch(b.remaining, cell)
	if !ok {
		if cell < 0 || cell >= len(b.cells) {
			return fmt.Errorf("%w: cell %d out of range [0, %d)", ErrInvalidMove, cell, len(b.cells))
		}
		return fmt.Errorf("%w: cell %d already claimed", ErrInvalidMove, cell)
	}
	b.remaining = slices.Delete(b.remaining, i, i+1)
	b.cells[cell] = p
	return nil
}

func validateShape(dim, size int) error {
	if dim != 2 && dim != 3 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	if size < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if _, ok := CellCount(dim, size); !ok {
		return fmt.Errorf("%w: %d^%d cells overflow int", ErrInvalidSize, size, dim)
	}
	return nil
}

// CellCount returns size^dim, or false when the product does not fit in an
// int. Non-positive arguments yield 0.
func CellCount(dim, size int) (int, bool) {
	if dim < 1 || size < 1 {
		return 0, true
	}
	n := 1
	for i := 0; i < dim; i++ {
		if n > math.MaxInt/size {
			return 0, false
		}
		n *= size
	}
	return n, true
}
