package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/jcorbin/gopost/internal/logio"
)

func main() {
	ctx := context.Background()

	var cfg config
	cfg.register(flag.CommandLine)
	flag.Parse()
	if err := cfg.loadEnv(flag.CommandLine); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}

	opts := append(cfg.options(), WithOutput(os.Stdout))
	if cfg.trace {
		opts = append(opts, WithLogf(logio.Slogf(newLogger(cfg.logFormat), slog.LevelDebug)))
	}
	rt := New(opts...)
	defer rt.Close()

	if cfg.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(rt.Registry(), promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.metricsAddr, mux); err != nil {
				fmt.Fprintf(os.Stderr, "metrics: %v\n", err)
			}
		}()
	}

	if cfg.timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	err := run(ctx, rt, cfg, flag.Args())
	if cfg.stats {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		if serr := enc.Encode(rt.Stats()); err == nil {
			err = serr
		}
	}
	if err != nil {
		rt.Close()
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
		os.Exit(1)
	}
}

func newLogger(format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// run executes each named file in turn within one context, or else standard
// input: line by line with a prompt when it is a terminal, all at once
// otherwise.
func run(ctx context.Context, rt *Runtime, cfg config, files []string) error {
	c, err := rt.NewContext()
	if err != nil {
		return err
	}
	exec := func(src []byte) error {
		err := c.ExecSource(ctx, src)
		if err != nil && cfg.dump {
			ctxDumper{c: c, out: os.Stderr, entities: cfg.trace}.dump()
		}
		return err
	}

	if len(files) > 0 {
		for _, name := range files {
			src, err := os.ReadFile(name)
			if err != nil {
				return err
			}
			if err := exec(src); err != nil {
				return fmt.Errorf("%v: %w", name, err)
			}
		}
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		return exec(src)
	}

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stdout, "gopost> ")
		if !sc.Scan() {
			fmt.Fprintln(os.Stdout)
			return sc.Err()
		}
		if err := exec(sc.Bytes()); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || c.quit {
				return err
			}
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		if c.quit {
			return nil
		}
	}
}
