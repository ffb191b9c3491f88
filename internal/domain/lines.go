package domain

import (
	"slices"
	"strconv"
	"strings"
)

// Line is one way to win: the cells a player must hold, in board order.
// Lines are generated once per game and never mutated.
type Line []int

// Contains reports whether cell is part of the line.
func (l Line) Contains(cell int) bool {
	return slices.Contains(l, cell)
}

// GenerateLines enumerates every winning line of a board with the given
// dimensionality (2 or 3) and edge size. Cells are numbered row-major.
//
// A square board yields 2N+2 lines. A cube yields the plane lines of each of
// the N layers along each of the three axes plus the 4 space diagonals,
// 3N(2N+2)+4 lines in total. Axis-parallel lines lie in two layers and are
// therefore emitted twice; see UniqueLines.
func GenerateLines(dim, size int) ([]Line, error) {
	if err := validateShape(dim, size); err != nil {
		return nil, err
	}
	n := size
	if dim == 2 {
		return planeLines(n, func(r, c int) int { return r*n + c }), nil
	}

	cube := func(a, b, c int) int { return a*n*n + b*n + c }
	lines := make([]Line, 0, 3*n*(2*n+2)+4)
	for i := 0; i < n; i++ {
		lines = append(lines, planeLines(n, func(r, c int) int { return cube(r, c, i) })...)
		lines = append(lines, planeLines(n, func(r, c int) int { return cube(r, i, c) })...)
		lines = append(lines, planeLines(n, func(r, c int) int { return cube(i, r, c) })...)
	}
	diagonals := make([]Line, 4)
	for i := 0; i < n; i++ {
		j := n - 1 - i
		diagonals[0] = append(diagonals[0], cube(i, i, i))
		diagonals[1] = append(diagonals[1], cube(i, j, i))
		diagonals[2] = append(diagonals[2], cube(j, i, i))
		diagonals[3] = append(diagonals[3], cube(j, j, i))
	}
	return append(lines, diagonals...), nil
}

// planeLines returns rows, columns and both diagonals of an n×n plane whose
// cell at (r, c) is at(r, c).
func planeLines(n int, at func(r, c int) int) []Line {
	lines := make([]Line, 0, 2*n+2)
	diag := make(Line, 0, n)
	anti := make(Line, 0, n)
	for i := 0; i < n; i++ {
		row := make(Line, n)
		col := make(Line, n)
		for j := 0; j < n; j++ {
			row[j] = at(i, j)
			col[j] = at(j, i)
		}
		lines = append(lines, row, col)
		diag = append(diag, at(i, i))
		anti = append(anti, at(i, n-1-i))
	}
	return append(lines, diag, anti)
}

// UniqueLines drops every line that holds the same set of cells as an
// earlier one, keeping first occurrences in order.
func UniqueLines(lines []Line) []Line {
	seen := make(map[string]struct{}, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		k := lineKey(l)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}

func lineKey(l Line) string {
	cells := slices.Clone(l)
	slices.Sort(cells)
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

// CellWeights counts, for every cell, how many of the lines contain it.
func CellWeights(lines []Line, numCells int) []int {
	w := make([]int, numCells)
	for _, l := range lines {
		for _, c := range l {
			w[c]++
		}
	}
	return w
}
