package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jaminalder/ndtictactoe/internal/domain"
	"github.com/jaminalder/ndtictactoe/internal/render"
	"github.com/jaminalder/ndtictactoe/internal/strategy"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	s := NewService(zaptest.NewLogger(t), opts)
	t.Cleanup(s.Close)
	return s
}

// topRow has player 0 take 0,1,2 while player 1 takes 3,4.
func topRow() MatchSpec {
	return MatchSpec{
		Dimension:  2,
		Size:       3,
		Strategies: [2]string{strategy.Scripted, strategy.Scripted},
		Options: [2]map[string]interface{}{
			{"cells": []int{0, 1, 2}},
			{"cells": []int{3, 4}},
		},
	}
}

func waitFor(t *testing.T, s *Service, id string) *MatchState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := s.Wait(ctx, id)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return st
}

func TestCreateMatchPlaysToCompletion(t *testing.T) {
	s := newTestService(t, Options{})
	gs, err := s.CreateMatch(topRow())
	if err != nil {
		t.Fatalf("CreateMatch error: %v", err)
	}
	if !ValidID(gs.ID) {
		t.Fatalf("expected uuid match id, got %q", gs.ID)
	}
	if gs.Created.IsZero() || gs.Updated.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	st := waitFor(t, s, gs.ID)
	if st.State != "won" || st.Winner != domain.Player0 {
		t.Fatalf("expected player 0 win, got state=%s winner=%v", st.State, st.Winner)
	}
	if len(st.Moves) != 5 || !st.Finished() {
		t.Fatalf("expected 5 moves and finished state, got %d moves", len(st.Moves))
	}
	if got := render.Text(st.Board()); got != "ooo\nxx_\n___\n" {
		t.Fatalf("unexpected final board %q", got)
	}
}

func TestCreateMatchRecordsSourceFailure(t *testing.T) {
	s := newTestService(t, Options{})
	spec := topRow()
	spec.Options[0] = map[string]interface{}{"cells": []int{0}}
	gs, err := s.CreateMatch(spec)
	if err != nil {
		t.Fatalf("CreateMatch error: %v", err)
	}
	st := waitFor(t, s, gs.ID)
	if st.Error == "" || !st.Finished() {
		t.Fatalf("expected failed match, got %+v", st)
	}
	if st.State != "in-progress" || len(st.Moves) != 2 {
		t.Fatalf("expected match stuck after 2 moves, got state=%s moves=%d", st.State, len(st.Moves))
	}
}

func TestCreateMatchValidation(t *testing.T) {
	s := newTestService(t, Options{MaxCells: 27})
	cases := []struct {
		name string
		edit func(*MatchSpec)
		want error
	}{
		{"dimension", func(m *MatchSpec) { m.Dimension = 4 }, domain.ErrInvalidDimension},
		{"size", func(m *MatchSpec) { m.Size = 0 }, domain.ErrInvalidSize},
		{"too large", func(m *MatchSpec) { m.Dimension, m.Size = 3, 4 }, ErrTooLarge},
		{"overflowing size", func(m *MatchSpec) { m.Dimension, m.Size = 3, 1 << 22 }, ErrTooLarge},
		{"interactive", func(m *MatchSpec) { m.Strategies[1] = strategy.Interactive }, ErrInteractive},
		{"unknown", func(m *MatchSpec) { m.Strategies[0] = "oracle" }, strategy.ErrUnknownStrategy},
		{"options", func(m *MatchSpec) { m.Options[0] = map[string]interface{}{"bogus": 1} }, strategy.ErrBadOptions},
	}
	for _, c := range cases {
		spec := topRow()
		c.edit(&spec)
		if _, err := s.CreateMatch(spec); !errors.Is(err, c.want) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}
	if n := len(s.List()); n != 0 {
		t.Fatalf("rejected matches must not be registered, have %d", n)
	}
}

func TestGetAndList(t *testing.T) {
	s := newTestService(t, Options{})
	a, _ := s.CreateMatch(topRow())
	time.Sleep(2 * time.Millisecond)
	b, _ := s.CreateMatch(MatchSpec{Dimension: 3, Size: 2, Strategies: [2]string{strategy.Random, strategy.Prioritized}, Seed: 9})
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("Get should not find unknown id")
	}
	got, ok := s.Get(a.ID)
	if !ok || got.ID != a.ID {
		t.Fatalf("Get should find created match")
	}
	list := s.List()
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("expected newest first, got %v", []string{list[0].ID, list[1].ID})
	}
	waitFor(t, s, b.ID)
}

func TestWaitUnknownAndCancelled(t *testing.T) {
	s := newTestService(t, Options{StepDelay: 100 * time.Millisecond})
	if _, err := s.Wait(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	gs, _ := s.CreateMatch(topRow())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Wait(ctx, gs.ID); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSubscribeReceivesProgress(t *testing.T) {
	s := newTestService(t, Options{StepDelay: 50 * time.Millisecond})
	gs, err := s.CreateMatch(topRow())
	if err != nil {
		t.Fatalf("CreateMatch error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, unsub, err := s.Subscribe(ctx, gs.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	var last MatchState
	got := 0
	for !last.Finished() {
		select {
		case st, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d snapshots", got)
			}
			last = st
			got++
		case <-ctx.Done():
			t.Fatalf("timed out waiting for snapshots")
		}
	}
	if got < 2 || last.State != "won" || len(last.Moves) != 5 {
		t.Fatalf("expected several snapshots ending in a win, got %d ending in %s", got, last.State)
	}
}

func TestSubscribeUnknownMatch(t *testing.T) {
	s := newTestService(t, Options{})
	if _, _, err := s.Subscribe(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLaggingSubscriberEndsOnFinalSnapshot(t *testing.T) {
	s := newTestService(t, Options{StepDelay: 10 * time.Millisecond})
	gs, _ := s.CreateMatch(topRow())

	// never read while the match runs
	lagging, unsub, err := s.Subscribe(context.Background(), gs.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitFor(t, s, gs.ID)

	select {
	case st, ok := <-lagging:
		if !ok {
			t.Fatalf("lagging subscriber must not be closed")
		}
		if !st.Finished() || len(st.Moves) != 5 {
			t.Fatalf("expected final snapshot, got state=%s moves=%d", st.State, len(st.Moves))
		}
	default:
		t.Fatalf("expected a buffered snapshot")
	}
	unsub()
	if _, ok := <-lagging; ok {
		t.Fatalf("channel should be closed after unsubscribe")
	}
}

func TestOverflowingShapeWithoutLimit(t *testing.T) {
	s := newTestService(t, Options{})
	spec := topRow()
	spec.Dimension, spec.Size = 3, 1 << 22
	if _, err := s.CreateMatch(spec); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
