package strategy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jaminalder/ndtictactoe/internal/domain"
)

// ErrInputClosed is returned when the reader ends before a valid cell.
var ErrInputClosed = errors.New("input closed")

// InteractiveSource asks a human for a cell, re-prompting until the answer
// is one of the unclaimed cells.
type InteractiveSource struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewInteractive reads answers line by line from in and writes prompts to
// out.
func NewInteractive(in io.Reader, out io.Writer) *InteractiveSource {
	return &InteractiveSource{in: bufio.NewScanner(in), out: out}
}

func newInteractive(options map[string]interface{}, env Env) (domain.MoveSource, error) {
	if err := decodeOptions(options, &struct{}{}); err != nil {
		return nil, err
	}
	in, out := env.In, env.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return NewInteractive(in, out), nil
}

func (s *InteractiveSource) Select(v domain.TurnView) (int, error) {
	if len(v.Remaining) == 0 {
		return 0, ErrNoCells
	}
	numCells := 0
	if v.Board != nil {
		numCells = v.Board.NumCells()
	}
	fmt.Fprintf(s.out, "Remaining numbers: %v\n", v.Remaining)
	for {
		fmt.Fprint(s.out, "Select number from above: ")
		if !s.in.Scan() {
			if err := s.in.Err(); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrInputClosed, err)
			}
			return 0, ErrInputClosed
		}
		text := strings.TrimSpace(s.in.Text())
		n, err := strconv.Atoi(text)
		switch {
		case err != nil:
			fmt.Fprintf(s.out, "%q is not a number\n", text)
		case slices.Contains(v.Remaining, n):
			return n, nil
		case n < 0 || (numCells > 0 && n >= numCells):
			fmt.Fprintf(s.out, "%d is out of range\n", n)
		default:
			fmt.Fprintf(s.out, "%d is already selected\n", n)
		}
	}
}
