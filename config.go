package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// envPrefix names the environment variables that provide defaults for any
// flag not given on the command line, e.g. GOPOST_MEM_LIMIT for -mem-limit.
const envPrefix = "GOPOST_"

type config struct {
	envFile      string
	timeout      time.Duration
	trace        bool
	logFormat    string
	memLimit     uint
	pageSize     uint
	collectEvery int
	maxContexts  int
	metricsAddr  string
	stats        bool
	dump         bool
}

func (cfg *config) register(fs *flag.FlagSet) {
	fs.StringVar(&cfg.envFile, "env", "", "load "+envPrefix+"* settings from a dotenv file")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "specify a time limit")
	fs.BoolVar(&cfg.trace, "trace", false, "enable trace logging")
	fs.StringVar(&cfg.logFormat, "log-format", "text", "trace log format: text or json")
	fs.UintVar(&cfg.memLimit, "mem-limit", 0, "limit each memory arena to this many bytes")
	fs.UintVar(&cfg.pageSize, "page-size", 0, "arena growth step in bytes")
	fs.IntVar(&cfg.collectEvery, "collect-every", DefaultCollectEvery, "collect after this many free list misses; 0 disables")
	fs.IntVar(&cfg.maxContexts, "max-contexts", DefaultMaxContexts, "bound the context table")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	fs.BoolVar(&cfg.stats, "stats", false, "print memory statistics as JSON on exit")
	fs.BoolVar(&cfg.dump, "dump", false, "dump the context after an error")
}

// loadEnv fills every flag not set on the command line from its environment
// variable, after loading any dotenv file.
func (cfg *config) loadEnv(fs *flag.FlagSet) error {
	if cfg.envFile != "" {
		if err := godotenv.Load(cfg.envFile); err != nil {
			return err
		}
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var err error
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil || set[f.Name] || f.Name == "env" {
			return
		}
		val, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}
		if ferr := cfg.setFromEnv(f.Name, val); ferr != nil {
			err = fmt.Errorf("%v: %w", envName(f.Name), ferr)
		}
	})
	return err
}

func (cfg *config) setFromEnv(name, val string) (err error) {
	switch name {
	case "timeout":
		cfg.timeout, err = cast.ToDurationE(val)
	case "trace":
		cfg.trace, err = cast.ToBoolE(val)
	case "log-format":
		cfg.logFormat, err = cast.ToStringE(val)
	case "mem-limit":
		cfg.memLimit, err = cast.ToUintE(val)
	case "page-size":
		cfg.pageSize, err = cast.ToUintE(val)
	case "collect-every":
		cfg.collectEvery, err = cast.ToIntE(val)
	case "max-contexts":
		cfg.maxContexts, err = cast.ToIntE(val)
	case "metrics-addr":
		cfg.metricsAddr, err = cast.ToStringE(val)
	case "stats":
		cfg.stats, err = cast.ToBoolE(val)
	case "dump":
		cfg.dump, err = cast.ToBoolE(val)
	}
	return err
}

func envName(flagName string) string {
	b := []byte(envPrefix + flagName)
	for i, c := range b {
		switch {
		case c == '-':
			b[i] = '_'
		case 'a' <= c && c <= 'z':
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func (cfg config) options() []RuntimeOption {
	opts := []RuntimeOption{WithMaxContexts(cfg.maxContexts)}
	if cfg.memLimit != 0 {
		opts = append(opts, WithMemLimit(uint32(cfg.memLimit)))
	}
	if cfg.pageSize != 0 {
		opts = append(opts, WithPageSize(uint32(cfg.pageSize)))
	}
	return append(opts, WithCollectEvery(cfg.collectEvery))
}
