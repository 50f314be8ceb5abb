// cmd/tweaker/main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/tweaker/pkg/catalog"
	"github.com/windowsadmins/tweaker/pkg/config"
	"github.com/windowsadmins/tweaker/pkg/elevate"
	"github.com/windowsadmins/tweaker/pkg/engine"
	"github.com/windowsadmins/tweaker/pkg/logging"
	"github.com/windowsadmins/tweaker/pkg/reporter"
	"github.com/windowsadmins/tweaker/pkg/selection"
	"github.com/windowsadmins/tweaker/pkg/system"
	"github.com/windowsadmins/tweaker/pkg/tweak"
	"github.com/windowsadmins/tweaker/pkg/version"
)

// Exit codes.
const (
	exitOK      = 0
	exitFatal   = 1
	exitFailed  = 2
	exitUsage   = 64
	exitAborted = 130
)

var logger *logging.Logger

type options struct {
	configPath string
	list       bool
	category   string
	selects    []string
	all        bool
	importPath string
	exportPath string
	timeout    time.Duration
	statusAddr string
	noElevate  bool
	elevated   bool
	showConfig bool
	version    bool
	verbosity  int
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	o := &options{}
	fs := pflag.NewFlagSet("tweaker", pflag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "Read configuration from this YAML file instead of "+config.ConfigPath+".")
	fs.BoolVar(&o.list, "list", false, "List every tweak by category and exit.")
	fs.StringVarP(&o.category, "category", "c", "essential", "Category to apply: essential, advanced, preferences or software.")
	fs.StringArrayVarP(&o.selects, "select", "s", nil, "Check a tweak by label (repeatable).")
	fs.BoolVar(&o.all, "all", false, "Check every tweak of the category.")
	fs.StringVar(&o.importPath, "import", "", "Load checked tweaks from an INI file.")
	fs.StringVar(&o.exportPath, "export", "", "Write the checked tweaks to an INI file.")
	fs.DurationVar(&o.timeout, "timeout", 0, "Bound on every external command (overrides CommandTimeoutMinutes).")
	fs.StringVar(&o.statusAddr, "status-addr", "", "host:port of a status listener to stream progress to.")
	fs.BoolVar(&o.noElevate, "no-elevate", false, "Do not request administrator rights.")
	fs.BoolVar(&o.elevated, "elevated", false, "")
	_ = fs.MarkHidden("elevated")
	fs.BoolVar(&o.showConfig, "show-config", false, "Display the current configuration and exit.")
	fs.BoolVar(&o.version, "version", false, "Print the version and exit.")
	fs.CountVarP(&o.verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv, -vvv)")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return o, fs, nil
}

func main() {
	elevate.PatchArgs()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, fs, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	if opts.version {
		version.Print(os.Stdout, opts.verbosity > 0)
		return exitOK
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return exitFatal
	}

	if opts.showConfig {
		if cfgYaml, err := yaml.Marshal(cfg); err == nil {
			fmt.Printf("Current configuration:\n%s", string(cfgYaml))
		}
		return exitOK
	}

	logger = logging.New(opts.verbosity > 0)
	if err := logging.Init(cfg); err != nil {
		logger.Error("Error initializing logger: %v", err)
		return exitFatal
	}
	defer logging.CloseLogger()
	logging.Info("Starting "+version.String(), "args", args)
	logging.LogStructured(logging.LevelDebug, "Host facts", system.Summary())

	runner := system.NewExecRunner(cfg.CommandTimeout())
	runner.Alias("winget", cfg.WingetPath)
	runner.Alias("powershell", cfg.PowerShellPath)
	host := system.NewHost(runner)

	reg, err := catalog.Builtin(host, catalog.Options{RestorePointDescription: cfg.RestorePointDescription})
	if err != nil {
		logger.Error("Loading tweak catalog: %v", err)
		return exitFatal
	}

	if opts.list {
		printCatalog(os.Stdout, reg)
		return exitOK
	}

	state := selection.NewState(reg)
	categories, err := prepareSelection(opts, fs.Changed("category"), state)
	if err != nil {
		var formatErr *selection.ImportFormatError
		if errors.As(err, &formatErr) {
			logger.Error("Could not import %s: %v", opts.importPath, formatErr.Err)
		} else {
			logger.Error("%v", err)
		}
		return exitUsage
	}

	if opts.exportPath != "" {
		if err := state.ExportFile(opts.exportPath); err != nil {
			logger.Error("Exporting configuration: %v", err)
			return exitFatal
		}
		logger.Success("Configuration exported to %s", opts.exportPath)
		if len(opts.selects) == 0 && !opts.all && opts.importPath == "" {
			return exitOK
		}
	}

	if needsElevation(opts, state, categories) {
		if code, done := ensureElevated(opts, args); done {
			return code
		}
	}

	// Handle system signals: the running tweak finishes, the rest are skipped.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(signalChan)
	go func() {
		select {
		case sig := <-signalChan:
			logger.Warning("Signal received (%s), finishing the current tweak and skipping the rest", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	rep, closeRep := buildReporter(ctx, cfg, opts.verbosity)
	defer closeRep()

	worker := engine.NewWorker(engine.New(reg))
	return executeAll(ctx, worker, state, categories, rep)
}

func loadConfig(opts *options) (*config.Configuration, error) {
	var (
		cfg *config.Configuration
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadConfigFrom(opts.configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	// 1 => INFO on the console, 2 => DEBUG in the log, 3+ => DEBUG everywhere
	if opts.verbosity > 0 {
		cfg.Verbose = true
	}
	if opts.verbosity >= 2 {
		cfg.LogLevel = "DEBUG"
	}
	if opts.verbosity >= 3 {
		cfg.Debug = true
	}
	if opts.timeout > 0 {
		cfg.CommandTimeoutMinutes = int((opts.timeout + time.Minute - 1) / time.Minute)
	}
	if opts.statusAddr != "" {
		cfg.StatusAddress = opts.statusAddr
	}
	return cfg, cfg.Validate()
}

// prepareSelection applies --import, --all and --select to state and returns
// the categories to run in order.
func prepareSelection(opts *options, categoryChanged bool, state *selection.State) ([]tweak.Category, error) {
	category, err := tweak.ParseCategory(opts.category)
	if err != nil {
		return nil, err
	}

	if opts.importPath != "" {
		if _, err := state.ImportFile(opts.importPath); err != nil {
			return nil, err
		}
	}
	if opts.all {
		state.SelectAll(category)
	}
	for _, label := range opts.selects {
		if err := state.Set(category, label, true); err != nil {
			return nil, fmt.Errorf("%w (use --list to see the labels)", err)
		}
	}

	// an import without an explicit category runs everything it checked
	if opts.importPath != "" && !categoryChanged {
		return append([]tweak.Category(nil), tweak.Categories...), nil
	}
	return []tweak.Category{category}, nil
}

func needsElevation(opts *options, state *selection.State, categories []tweak.Category) bool {
	if opts.noElevate {
		return false
	}
	for _, c := range categories {
		if len(state.Selection(c)) > 0 {
			return true
		}
	}
	return false
}

// ensureElevated returns done=true when the caller must exit with code.
func ensureElevated(opts *options, args []string) (int, bool) {
	admin, err := elevate.IsElevated()
	if err == nil && admin {
		return exitOK, false
	}
	if opts.elevated {
		logger.Error("Administrative access required. Error: %v, Admin: %v", err, admin)
		return exitFatal, true
	}

	logging.Info("Requesting administrator rights")
	if err := elevate.Relaunch(args); err != nil {
		logger.Error("Administrative access required: %v (use --no-elevate to run anyway)", err)
		return exitFatal, true
	}
	logger.Info("Continuing in the elevated window")
	return exitOK, true
}

func buildReporter(ctx context.Context, cfg *config.Configuration, verbosity int) (reporter.Reporter, func()) {
	tracker := reporter.NewTracker(filepath.Dir(cfg.LogPath))

	// the console renders on its own goroutine, fed through a channel
	display := reporter.NewChannel(64)
	console := reporter.NewConsole(os.Stdout, verbosity > 0)
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		if err := reporter.Drain(display.Events(), console); err != nil {
			logging.Warn("Console display failed", "error", err)
		}
	}()

	reps := []reporter.Reporter{display, tracker}
	closers := []func(){
		func() {
			display.Close()
			<-rendered
		},
		tracker.Close,
	}

	if cfg.StatusAddress != "" {
		pipe := reporter.NewPipeReporter(cfg.StatusAddress)
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := pipe.Connect(connectCtx)
		cancel()
		if err != nil {
			logging.Warn("Failed to connect to status listener, continuing without it", "address", cfg.StatusAddress, "error", err)
		} else {
			reps = append(reps, pipe)
			closers = append(closers, pipe.Close)
		}
	}

	return reporter.Multi(reps...), func() {
		for _, c := range closers {
			c()
		}
	}
}

// executeAll runs each category in turn and clears its selection afterwards.
func executeAll(ctx context.Context, worker *engine.Worker, state *selection.State, categories []tweak.Category, rep reporter.Reporter) int {
	var active []tweak.Category
	for _, c := range categories {
		if len(state.Selection(c)) > 0 {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		// still report "No options selected" once
		active = categories[:1]
	}

	code := exitOK
	for _, c := range active {
		labels := state.Selection(c)
		if ctx.Err() != nil {
			return exitAborted
		}

		category := c
		var (
			summary tweak.Summary
			runErr  error
		)
		err := worker.Start(ctx, category, labels, rep, func(s tweak.Summary, err error) {
			summary, runErr = s, err
			state.Clear(category)
		})
		if err != nil {
			logger.Error("%v", err)
			return exitFatal
		}
		worker.Wait()

		switch {
		case runErr != nil:
			logging.Error("Run aborted", "category", category.Key(), "error", runErr)
			return exitFatal
		case summary.Cancelled:
			code = exitAborted
		case summary.Failed > 0 && code == exitOK:
			code = exitFailed
		}
	}
	return code
}
