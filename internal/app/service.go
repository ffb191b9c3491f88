package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/jaminalder/ndtictactoe/internal/domain"
	"github.com/jaminalder/ndtictactoe/internal/strategy"
	"go.uber.org/zap"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("match not found")
	ErrInteractive = errors.New("interactive players cannot be hosted")
	ErrTooLarge    = errors.New("board too large")
)

// MatchSpec describes an engine-vs-engine match.
type MatchSpec struct {
	Dimension  int
	Size       int
	Strategies [2]string
	Options    [2]map[string]interface{}
	Seed       int64
	Unique     bool
}

// MatchState is the snapshot kept per match and handed to subscribers.
type MatchState struct {
	ID         string          `json:"id"`
	Dimension  int             `json:"dimension"`
	Size       int             `json:"size"`
	Strategies [2]string       `json:"strategies"`
	Cells      []domain.Player `json:"cells"`
	Moves      []domain.Move   `json:"moves"`
	State      string          `json:"state"`
	Winner     domain.Player   `json:"winner"`
	Error      string          `json:"error,omitempty"`
	Created    time.Time       `json:"created"`
	Updated    time.Time       `json:"updated"`
}

// Finished reports whether the match will not change any more.
func (m MatchState) Finished() bool {
	return m.Error != "" || m.State == domain.Draw.String() || m.State == domain.Won.String()
}

// Board exposes the snapshot cells as a read-only board.
func (m MatchState) Board() domain.BoardView { return snapshotBoard{m} }

type snapshotBoard struct{ st MatchState }

func (b snapshotBoard) Size() int      { return b.st.Size }
func (b snapshotBoard) Dimension() int { return b.st.Dimension }
func (b snapshotBoard) NumCells() int  { return len(b.st.Cells) }

func (b snapshotBoard) At(cell int) domain.Player {
	if cell < 0 || cell >= len(b.st.Cells) {
		return domain.NoPlayer
	}
	return b.st.Cells[cell]
}

func (m MatchState) clone() MatchState {
	cp := m
	cp.Cells = append([]domain.Player(nil), m.Cells...)
	cp.Moves = append([]domain.Move(nil), m.Moves...)
	return cp
}

type match struct {
	state MatchState
	done  chan struct{}
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan MatchState
	closed bool
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// send never blocks. A snapshot the subscriber has not read yet is replaced
// by st, so a lagging reader skips frames but always ends on the latest one.
// It reports whether a stale snapshot was discarded.
func (s *subscriber) send(st MatchState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	replaced := false
	for {
		select {
		case s.ch <- st:
			return replaced
		default:
		}
		select {
		case <-s.ch:
			replaced = true
		default:
		}
	}
}

// Options tune a Service.
type Options struct {
	// StepDelay pauses after every applied move so spectators can follow.
	StepDelay time.Duration
	// MaxCells bounds size^dimension of hosted matches; zero means no bound.
	MaxCells int
}

// Service hosts matches and fans their progress out to subscribers.
type Service struct {
	mu      sync.Mutex
	matches map[string]*match
	subs    map[string]map[*subscriber]struct{}
	log     *zap.Logger
	opts    Options
	wg      sync.WaitGroup
}

// NewService creates a service. A nil logger discards output.
func NewService(log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		matches: make(map[string]*match),
		subs:    make(map[string]map[*subscriber]struct{}),
		log:     log,
		opts:    opts,
	}
}

// CreateMatch validates spec, registers the match and starts playing it in
// the background.
func (s *Service) CreateMatch(spec MatchSpec) (*MatchState, error) {
	if spec.Dimension != 2 && spec.Dimension != 3 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidDimension, spec.Dimension)
	}
	if spec.Size < 1 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidSize, spec.Size)
	}
	cells, ok := domain.CellCount(spec.Dimension, spec.Size)
	if !ok {
		return nil, fmt.Errorf("%w: %d^%d cells overflow", ErrTooLarge, spec.Size, spec.Dimension)
	}
	if s.opts.MaxCells > 0 && cells > s.opts.MaxCells {
		return nil, fmt.Errorf("%w: %d cells, limit %d", ErrTooLarge, cells, s.opts.MaxCells)
	}
	seed := spec.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var sources [2]domain.MoveSource
	for i, name := range spec.Strategies {
		if strategy.IsInteractive(name) {
			return nil, fmt.Errorf("%w: player %d", ErrInteractive, i)
		}
		src, err := strategy.New(name, spec.Options[i], strategy.Env{
			Dimension:   spec.Dimension,
			Size:        spec.Size,
			UniqueLines: spec.Unique,
			Rand:        rand.New(rand.NewSource(seed + int64(i))),
		})
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", i, err)
		}
		sources[i] = src
	}

	id := newID()
	now := time.Now()
	m := &match{
		state: MatchState{
			ID:         id,
			Dimension:  spec.Dimension,
			Size:       spec.Size,
			Strategies: spec.Strategies,
			Cells:      emptyCells(cells),
			State:      domain.InProgress.String(),
			Winner:     domain.NoPlayer,
			Created:    now,
			Updated:    now,
		},
		done: make(chan struct{}),
	}
	opts := []domain.Option{domain.WithRenderer(func(b domain.BoardView, mv domain.Move) {
		s.record(id, b, mv)
	})}
	if spec.Unique {
		opts = append(opts, domain.WithUniqueLines())
	}
	g, err := domain.New(spec.Dimension, spec.Size, sources, opts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.matches[id] = m
	cp := m.state.clone()
	s.mu.Unlock()

	s.log.Info("match created",
		zap.String("match_id", id),
		zap.Int("dimension", spec.Dimension),
		zap.Int("size", spec.Size),
		zap.Strings("strategies", spec.Strategies[:]),
		zap.Int64("seed", seed),
	)
	s.wg.Add(1)
	go s.play(id, g)
	return &cp, nil
}

func (s *Service) play(id string, g *domain.Game) {
	defer s.wg.Done()
	res, err := g.Run()

	s.mu.Lock()
	m := s.matches[id]
	m.state.State = res.State.String()
	m.state.Winner = res.Winner
	if err != nil {
		m.state.Error = err.Error()
	}
	m.state.Updated = time.Now()
	cp := m.state.clone()
	subs := s.copySubsLocked(id)
	s.mu.Unlock()

	s.publish(id, subs, cp)
	close(m.done)
	if err != nil {
		s.log.Error("match failed", zap.String("match_id", id), zap.Error(err))
		return
	}
	s.log.Info("match finished",
		zap.String("match_id", id),
		zap.String("result", cp.State),
		zap.Int("winner", int(cp.Winner)),
		zap.Int("moves", len(cp.Moves)),
	)
}

// record runs on the match goroutine after every applied move.
func (s *Service) record(id string, b domain.BoardView, mv domain.Move) {
	s.mu.Lock()
	m, ok := s.matches[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	m.state.Cells[mv.Cell] = b.At(mv.Cell)
	m.state.Moves = append(m.state.Moves, mv)
	m.state.Updated = time.Now()
	cp := m.state.clone()
	subs := s.copySubsLocked(id)
	s.mu.Unlock()

	s.log.Debug("move applied",
		zap.String("match_id", id),
		zap.Int("turn", mv.Turn),
		zap.Int("player", int(mv.Player)),
		zap.Int("cell", mv.Cell),
	)
	s.publish(id, subs, cp)
	if s.opts.StepDelay > 0 {
		time.Sleep(s.opts.StepDelay)
	}
}

// Get returns a copy of the match state if present.
func (s *Service) Get(id string) (*MatchState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, false
	}
	cp := m.state.clone()
	return &cp, true
}

// List returns copies of all matches, newest first.
func (s *Service) List() []MatchState {
	s.mu.Lock()
	out := make([]MatchState, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m.state.clone())
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out
}

// Wait blocks until the match finishes or ctx is done.
func (s *Service) Wait(ctx context.Context, id string) (*MatchState, error) {
	s.mu.Lock()
	m, ok := s.matches[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	select {
	case <-m.done:
		cp, _ := s.Get(id)
		return cp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close waits for every running match to finish.
func (s *Service) Close() { s.wg.Wait() }

// Subscribe registers a subscriber for a match. The channel receives a
// snapshot after every move and once more when the match ends; a reader that
// falls behind only sees the newest one.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan MatchState, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan MatchState, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

// publish fans out without blocking; lagging subscribers only keep the
// newest snapshot.
func (s *Service) publish(id string, subs map[*subscriber]struct{}, st MatchState) {
	skipped := 0
	for sub := range subs {
		if sub.send(st) {
			skipped++
		}
	}
	if skipped > 0 {
		s.log.Debug("coalesced snapshots for lagging subscribers",
			zap.String("match_id", id),
			zap.Int("count", skipped),
			zap.Int("moves", len(st.Moves)),
		)
	}
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}

func emptyCells(n int) []domain.Player {
	cells := make([]domain.Player, n)
	for i := range cells {
		cells[i] = domain.NoPlayer
	}
	return cells
}
