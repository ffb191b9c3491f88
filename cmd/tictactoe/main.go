package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaminalder/ndtictactoe/internal/app"
	"github.com/jaminalder/ndtictactoe/internal/config"
	"github.com/jaminalder/ndtictactoe/internal/domain"
	"github.com/jaminalder/ndtictactoe/internal/render"
	"github.com/jaminalder/ndtictactoe/internal/strategy"
	"github.com/jaminalder/ndtictactoe/internal/web"
	"go.uber.org/zap"
)

// getEnvOrDefault returns the environment value of key, or def when unset.
func getEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

type flags struct {
	configPath string
	dim        int
	size       int
	players    [2]string
	seed       int64
	serve      bool
	addr       string
	quiet      bool
	dev        bool
}

func parseFlags(args []string) (flags, *flag.FlagSet, error) {
	var f flags
	fs := flag.NewFlagSet("tictactoe", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", os.Getenv("TICTACTOE_CONFIG"), "YAML config file")
	fs.IntVar(&f.dim, "dim", 0, "board dimension, 2 or 3")
	fs.IntVar(&f.size, "size", 0, "board edge length")
	fs.StringVar(&f.players[0], "o", "", "strategy of player 0 (moves first)")
	fs.StringVar(&f.players[1], "x", "", "strategy of player 1")
	fs.Int64Var(&f.seed, "seed", 0, "random seed, 0 picks one from the clock")
	fs.BoolVar(&f.serve, "serve", false, "host the spectator web server instead of playing")
	fs.StringVar(&f.addr, "addr", getEnvOrDefault("ADDR", ""), "listen address for -serve")
	fs.BoolVar(&f.quiet, "quiet", false, "do not print the board after each move")
	fs.BoolVar(&f.dev, "dev", false, "development logging")
	err := fs.Parse(args)
	return f, fs, err
}

// resolve layers flags over the config file over the defaults.
func resolve(f flags, set map[string]bool) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	if set["dim"] {
		cfg.Dimension = f.dim
	}
	if set["size"] {
		cfg.Size = f.size
	}
	if set["o"] {
		cfg.Players[0] = config.Player{Strategy: f.players[0]}
	}
	if set["x"] {
		cfg.Players[1] = config.Player{Strategy: f.players[1]}
	}
	if set["seed"] {
		cfg.Seed = f.seed
	}
	if set["quiet"] {
		cfg.Render = !f.quiet
	}
	if set["dev"] {
		cfg.Log.Development = f.dev
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Log.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	f, fs, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	cfg, err := resolve(f, set)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if f.serve {
		err = serve(cfg, log)
	} else {
		var res domain.Result
		res, err = playLocal(cfg, os.Stdin, os.Stdout)
		if err == nil {
			fmt.Println(render.Result(res))
		}
	}
	if err != nil {
		log.Error("tictactoe failed", zap.Error(err))
		os.Exit(1)
	}
}

// playLocal runs one game on the terminal.
func playLocal(cfg config.Config, in io.Reader, out io.Writer) (domain.Result, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var sources [2]domain.MoveSource
	for i, p := range cfg.Players {
		src, err := strategy.New(p.Strategy, p.StringOptions(), strategy.Env{
			Dimension:   cfg.Dimension,
			Size:        cfg.Size,
			UniqueLines: cfg.Unique,
			Rand:        rand.New(rand.NewSource(seed + int64(i))),
			In:          in,
			Out:         out,
		})
		if err != nil {
			return domain.Result{}, fmt.Errorf("player %d: %w", i, err)
		}
		sources[i] = src
	}
	var opts []domain.Option
	if cfg.Render {
		opts = append(opts, domain.WithRenderer(render.Writer(out)))
	}
	if cfg.Unique {
		opts = append(opts, domain.WithUniqueLines())
	}
	g, err := domain.New(cfg.Dimension, cfg.Size, sources, opts...)
	if err != nil {
		return domain.Result{}, err
	}
	if cfg.Render {
		fmt.Fprintln(out, render.Text(g.Board()))
	}
	return g.Run()
}

func serve(cfg config.Config, log *zap.Logger) error {
	svc := app.NewService(log, app.Options{
		StepDelay: cfg.Server.StepDelay,
		MaxCells:  cfg.Server.MaxCells,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           web.NewServer(svc, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.Int("max_cells", cfg.Server.MaxCells))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	svc.Close()
	return err
}
