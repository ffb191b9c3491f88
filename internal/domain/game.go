package domain

import (
	"errors"
	"fmt"
	"slices"
)

// Errors returned by domain operations.
var (
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrInvalidSize      = errors.New("invalid size")
	ErrInvalidMove      = errors.New("invalid move")
	ErrGameOver         = errors.New("game over")
)

// State is the lifecycle stage of a game.
type State uint8

const (
	NotStarted State = iota
	InProgress
	Draw
	Won
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in-progress"
	case Draw:
		return "draw"
	case Won:
		return "won"
	default:
		return "not-started"
	}
}

// Terminal reports whether no further moves are accepted.
func (s State) Terminal() bool { return s == Draw || s == Won }

// Result is the outcome of a game. Winner is NoPlayer unless State is Won.
type Result struct {
	State  State
	Winner Player
}

// Move is one applied claim.
type Move struct {
	Turn   int
	Player Player
	Cell   int
}

// TurnView is what a move source sees when asked for a cell.
type TurnView struct {
	Turn      int
	Player    Player
	Board     BoardView
	Remaining []int
	Own       Buckets
	Opponent  Buckets
}

// MoveSource picks the next cell for one side. The returned cell must be
// one of view.Remaining. Select may block for as long as it needs.
type MoveSource interface {
	Select(view TurnView) (int, error)
}

// MoveSourceFunc adapts a plain function to MoveSource.
type MoveSourceFunc func(view TurnView) (int, error)

func (f MoveSourceFunc) Select(view TurnView) (int, error) { return f(view) }

// RenderFunc is invoked after every applied move.
type RenderFunc func(b BoardView, m Move)

// Option configures a Game.
type Option func(*options)

type options struct {
	render RenderFunc
	unique bool
}

// WithRenderer installs a callback run after each applied move.
func WithRenderer(fn RenderFunc) Option {
	return func(o *options) { o.render = fn }
}

// WithUniqueLines seeds the trackers with UniqueLines of the generated set.
func WithUniqueLines() Option {
	return func(o *options) { o.unique = true }
}

// Game drives two move sources over a shared board.
type Game struct {
	board    *Board
	lines    []Line
	trackers [2]*Tracker
	sources  [2]MoveSource
	render   RenderFunc
	turn     int
	state    State
	winner   Player
	moves    []Move
}

// New sets up a game ready for its first move. sources[0] plays Player0.
func New(dim, size int, sources [2]MoveSource, opts ...Option) (*Game, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	lines, err := GenerateLines(dim, size)
	if err != nil {
		return nil, err
	}
	if o.unique {
		lines = UniqueLines(lines)
	}
	board, err := NewBoard(dim, size)
	if err != nil {
		return nil, err
	}
	g := &Game{
		board:   board,
		lines:   lines,
		sources: sources,
		render:  o.render,
		winner:  NoPlayer,
		state:   NotStarted,
	}
	for i := range g.trackers {
		g.trackers[i] = NewTracker(size, lines)
	}
	g.state = InProgress
	return g, nil
}

// Board exposes the board read-only.
func (g *Game) Board() BoardView { return g.board }

// Remaining returns the unclaimed cells in ascending order.
func (g *Game) Remaining() []int { return g.board.Remaining() }

// Lines returns a copy of the line set the trackers were seeded with.
func (g *Game) Lines() []Line {
	out := make([]Line, len(g.lines))
	for i, l := range g.lines {
		out[i] = slices.Clone(l)
	}
	return out
}

// Tracker returns the candidate index of p, or nil for NoPlayer.
func (g *Game) Tracker(p Player) *Tracker {
	if p != Player0 && p != Player1 {
		return nil
	}
	return g.trackers[p]
}

// Turn returns the number of moves applied so far.
func (g *Game) Turn() int { return g.turn }

// Current returns the side to move.
func (g *Game) Current() Player { return Player(g.turn % 2) }

// State returns the lifecycle stage.
func (g *Game) State() State { return g.state }

// Result returns the current outcome.
func (g *Game) Result() Result { return Result{State: g.state, Winner: g.winner} }

// Moves returns a copy of the applied moves.
func (g *Game) Moves() []Move { return append([]Move(nil), g.moves...) }

// Step asks the current side's source for a cell and applies it.
func (g *Game) Step() error {
	if g.state != InProgress {
		return ErrGameOver
	}
	p := g.Current()
	src := g.sources[p]
	if src == nil {
		return fmt.Errorf("no move source for player %d", p)
	}
	cell, err := src.Select(TurnView{
		Turn:      g.turn,
		Player:    p,
		Board:     g.board,
		Remaining: g.board.Remaining(),
		Own:       g.trackers[p].Snapshot(),
		Opponent:  g.trackers[p.Opponent()].Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("select move for player %d: %w", p, err)
	}
	return g.Apply(cell)
}

// Apply claims cell for the side to move, bypassing its move source.
func (g *Game) Apply(cell int) error {
	if g.state != InProgress {
		return ErrGameOver
	}
	p := g.Current()
	if err := g.board.claim(cell, p); err != nil {
		return err
	}
	won := g.trackers[p].ClaimOwn(cell)
	g.trackers[p.Opponent()].ClaimOpponent(cell)

	m := Move{Turn: g.turn, Player: p, Cell: cell}
	g.moves = append(g.moves, m)
	g.turn++
	switch {
	case won:
		g.state = Won
		g.winner = p
	case g.board.IsFull():
		g.state = Draw
	}
	if g.render != nil {
		g.render(g.board, m)
	}
	return nil
}

// Run plays turns until the game ends or a turn fails.
func (g *Game) Run() (Result, error) {
	for g.state == InProgress {
		if err := g.Step(); err != nil {
			return g.Result(), err
		}
	}
	return g.Result(), nil
}
