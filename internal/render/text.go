// Package render formats boards as plain text.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jaminalder/ndtictactoe/internal/domain"
)

// Text draws the board one row per line using "_", "o" and "x". Cube
// layers are separated by a blank line.
func Text(b domain.BoardView) string {
	var sb strings.Builder
	n := b.Size()
	for c := 0; c < b.NumCells(); c++ {
		sb.WriteString(b.At(c).String())
		if (c+1)%n == 0 {
			sb.WriteByte('\n')
		}
		if b.Dimension() == 3 && (c+1)%(n*n) == 0 && c+1 < b.NumCells() {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Writer returns a render callback printing the move and the board to w.
func Writer(w io.Writer) domain.RenderFunc {
	return func(b domain.BoardView, m domain.Move) {
		fmt.Fprintf(w, "turn %d: player %d takes %d\n%s\n", m.Turn, m.Player, m.Cell, Text(b))
	}
}

// Result describes a finished game the way the command prints it.
func Result(r domain.Result) string {
	switch r.State {
	case domain.Won:
		return fmt.Sprintf("winner is %d", r.Winner)
	case domain.Draw:
		return "draw"
	default:
		return r.State.String()
	}
}
