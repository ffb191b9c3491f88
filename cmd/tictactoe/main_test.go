package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaminalder/ndtictactoe/internal/config"
	"github.com/jaminalder/ndtictactoe/internal/domain"
	"github.com/jaminalder/ndtictactoe/internal/render"
	"github.com/jaminalder/ndtictactoe/internal/strategy"
)

func resolveArgs(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	f, fs, err := parseFlags(args)
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	set := map[string]bool{}
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			name := strings.TrimLeft(strings.SplitN(a, "=", 2)[0], "-")
			if fs.Lookup(name) != nil {
				set[name] = true
			}
		}
	}
	return resolve(f, set)
}

func TestResolveFlagsOverConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yaml")
	doc := "dimension: 3\nsize: 4\nplayers:\n  - strategy: random\n  - strategy: random\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := resolveArgs(t, "-config="+path, "-size=2", "-x=prioritized", "-quiet")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Dimension != 3 || cfg.Size != 2 {
		t.Fatalf("expected 3D size 2, got %dD size %d", cfg.Dimension, cfg.Size)
	}
	if cfg.Players[0].Strategy != strategy.Random || cfg.Players[1].Strategy != strategy.Prioritized {
		t.Fatalf("unexpected players %+v", cfg.Players)
	}
	if cfg.Render {
		t.Fatalf("-quiet should disable rendering")
	}
}

func TestResolveRejectsBadDimension(t *testing.T) {
	if _, err := resolveArgs(t, "-dim=4"); err == nil {
		t.Fatalf("expected error for dimension 4")
	}
}

func TestPlayLocalInteractiveAgainstScript(t *testing.T) {
	cfg := config.Default()
	cfg.Players[1] = config.Player{
		Strategy: strategy.Scripted,
		Options:  map[interface{}]interface{}{"cells": []interface{}{3, 4}},
	}
	in := strings.NewReader("0\n1\n2\n")
	var out bytes.Buffer
	res, err := playLocal(cfg, in, &out)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if res.State != domain.Won || res.Winner != domain.Player0 {
		t.Fatalf("expected player 0 win, got %+v", res)
	}
	if got := render.Result(res); got != "winner is 0" {
		t.Fatalf("unexpected result line %q", got)
	}
	if !strings.Contains(out.String(), "ooo\nxx_\n___\n") {
		t.Fatalf("expected final board in output, got %q", out.String())
	}
}

func TestPlayLocalRandomCube(t *testing.T) {
	cfg := config.Default()
	cfg.Dimension, cfg.Size, cfg.Seed, cfg.Render = 3, 3, 17, false
	cfg.Players = [2]config.Player{{Strategy: strategy.Prioritized}, {Strategy: strategy.Random}}
	var out bytes.Buffer
	res, err := playLocal(cfg, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !res.State.Terminal() {
		t.Fatalf("expected finished game, got %v", res.State)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output with rendering off, got %q", out.String())
	}
}
