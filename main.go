package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"library-ledger/config"
	"library-ledger/library"
)

// app carries what every subcommand shares once the root command has run.
type app struct {
	configPath string
	dataDir    string
	backend    string
	logLevel   string
	jsonOut    bool

	cfg    config.Config
	logger *slog.Logger
	mgr    *library.LibraryManager
	out    io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "library-ledger",
		Short:         "Keep track of a small library's books, borrowers and loans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.mgr == nil {
				return nil
			}
			return a.mgr.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.dataDir, "data-dir", "", "directory holding the record files")
	flags.StringVar(&a.backend, "backend", "", "storage backend: csv or sqlite")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newBookCmd(a),
		newUserCmd(a),
		newLoanCmd(a),
		newReportCmd(a),
		newServeCmd(a),
		newShellCmd(a),
	)
	return root
}

// open resolves the configuration (file, environment, then flags) and loads the library.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend = a.backend
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	opts, err := cfg.Options(a.logger)
	if err != nil {
		return err
	}
	a.mgr, err = library.OpenLibraryManager(cfg.Backend, cfg.DataDir, cfg.DBFile, opts...)
	return err
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s id %q", library.ErrInvalidInput, what, s)
	}
	return id, nil
}
