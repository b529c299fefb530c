package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/CaptShanks/redroll/internal/config"
	"github.com/CaptShanks/redroll/internal/dice"
	"github.com/CaptShanks/redroll/internal/history"
	"github.com/CaptShanks/redroll/internal/server"
	"github.com/CaptShanks/redroll/internal/tui"
	"github.com/CaptShanks/redroll/internal/updater"
)

const version = "0.3.0"

var cfg config.Config

func main() {
	args := os.Args[1:]

	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Apply color scheme
	switch cfg.Theme {
	case "light":
		tui.SetLightPalette()
	case "dark":
		tui.SetDarkPalette()
	}

	// Dispatch on args[0]
	if len(args) == 0 {
		runInteractiveMode()
		return
	}
	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	case "-v", "--version", "version":
		runVersionMode()
		return
	case "roll":
		runRollMode(args[1:])
		return
	case "parse":
		runParseMode(args[1:])
		return
	case "validate":
		runValidateMode(args[1:])
		return
	case "history":
		runHistoryMode(args[1:])
		return
	case "serve":
		runServeMode(args[1:])
		return
	case "upgrade":
		runUpgradeMode()
		return
	}

	// Bare notation: redroll 2d6+3 d20
	if dice.Validate(args[0]) || strings.HasPrefix(args[0], "-") {
		runRollMode(args)
		return
	}
	fmt.Fprintf(os.Stderr, "Unknown command or invalid dice notation: %s\n", args[0])
	fmt.Fprintln(os.Stderr, "Use 'redroll --help' for usage")
	os.Exit(1)
}

// newRoller returns a seeded roller when seed is non-zero
func newRoller(seed uint64) *dice.Roller {
	if seed != 0 {
		return dice.NewRoller(dice.NewSeededSource(seed))
	}
	return dice.NewRoller(nil)
}

// historyStore returns nil when history is disabled
func historyStore() *history.Store {
	if cfg.NoHistory {
		return nil
	}
	return history.NewStore(cfg.HistoryDir)
}

// record saves a roll, warning on stderr if that fails
func record(store *history.Store, result dice.Result, source string) {
	if store == nil {
		return
	}
	if err := store.Record(result, source, cfg.MaxHistory); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to save history: %v\n", err)
	}
}

// runInteractiveMode starts the TUI roller
func runInteractiveMode() {
	store := historyStore()
	opts := tui.Options{
		Version:            version,
		CacheDir:           cfg.HistoryDir,
		UpdateIntervalDays: cfg.UpdateCheckInterval,
		SkipUpdateCheck:    cfg.SkipUpdateCheck,
	}
	if store != nil {
		opts.Record = func(r dice.Result) error {
			return store.Record(r, history.SourceTUI, cfg.MaxHistory)
		}
	}

	if _, err := tui.Run(newRoller(cfg.Seed), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// rollOptions holds the parsed arguments of the roll command
type rollOptions struct {
	times     int
	seed      uint64
	print     bool
	notations []string
}

// parseRollArgs parses [-n N] [--seed S] [-p] <notation>...
func parseRollArgs(args []string, seed uint64) (rollOptions, error) {
	opts := rollOptions{times: 1, seed: seed}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n", "--times":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", args[i])
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 1 {
				return opts, fmt.Errorf("invalid roll count: %s", args[i+1])
			}
			opts.times = n
			i++
		case "--seed":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", args[i])
			}
			s, err := strconv.ParseUint(args[i+1], 10, 64)
			if err != nil {
				return opts, fmt.Errorf("invalid seed: %s", args[i+1])
			}
			opts.seed = s
			i++
		case "-p", "--print":
			opts.print = true
		default:
			if strings.HasPrefix(args[i], "-") {
				return opts, fmt.Errorf("unknown option: %s", args[i])
			}
			opts.notations = append(opts.notations, args[i])
		}
	}

	if len(opts.notations) == 0 {
		return opts, errors.New("no dice notation given")
	}
	return opts, nil
}

// parseRollable parses every notation, rejecting any that cannot be rolled
func parseRollable(notations []string) ([]dice.Formula, error) {
	formulas := make([]dice.Formula, len(notations))
	for i, n := range notations {
		f, err := dice.Parse(n)
		if err != nil {
			return nil, err
		}
		if err := dice.CheckRollable(f); err != nil {
			return nil, fmt.Errorf("%s: %w", n, err)
		}
		formulas[i] = f
	}
	return formulas, nil
}

// runRollMode rolls each notation and prints the results
func runRollMode(args []string) {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			printRollUsage()
			os.Exit(0)
		}
	}

	opts, err := parseRollArgs(args, cfg.Seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Use 'redroll roll --help' for usage")
		os.Exit(1)
	}

	// Parse everything first so a typo doesn't leave half the rolls recorded
	formulas, err := parseRollable(opts.notations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if opts.print {
		tui.DisableColor()
	}

	roller := newRoller(opts.seed)
	store := historyStore()
	for _, f := range formulas {
		for range opts.times {
			result, err := roller.RollFormula(f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			tui.PrintResult(os.Stdout, result, 0)
			record(store, result, history.SourceCLI)
		}
	}
}

// runParseMode prints the canonical form and bounds of each notation
func runParseMode(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: redroll parse <notation>...")
		os.Exit(1)
	}

	failed := false
	for i, n := range args {
		f, err := dice.Parse(n)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
			continue
		}
		if i > 0 {
			fmt.Println()
		}
		tui.PrintFormula(os.Stdout, f)
	}
	if failed {
		os.Exit(1)
	}
}

// runValidateMode reports valid/invalid per argument and exits 2 if any are invalid
func runValidateMode(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: redroll validate <notation>...")
		os.Exit(1)
	}

	invalid := 0
	for _, n := range args {
		if dice.Validate(n) {
			fmt.Printf("valid    %s\n", n)
		} else {
			fmt.Printf("invalid  %s\n", n)
			invalid++
		}
	}
	if invalid > 0 {
		os.Exit(2)
	}
}

// runHistoryMode handles history subcommands: list, view
func runHistoryMode(args []string) {
	// Check for help first
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			printHistoryUsage()
			os.Exit(0)
		}
	}

	if cfg.NoHistory {
		fmt.Println("History is disabled (REDROLL_NO_HISTORY is set).")
		return
	}

	if len(args) == 0 {
		runHistoryList(nil)
		return
	}

	switch args[0] {
	case "list":
		runHistoryList(args[1:])
	case "view":
		runHistoryView(args[1:])
	case "--clear":
		clearHistory()
	default:
		// Check if it's a number (shorthand for view)
		if isNumeric(args[0]) {
			runHistoryView(args)
		} else {
			fmt.Fprintf(os.Stderr, "Unknown history subcommand: %s\n", args[0])
			printHistoryUsage()
			os.Exit(1)
		}
	}
}

// isNumeric checks if a string is a positive integer
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// historySourceFlag maps a list option to a history source
func historySourceFlag(arg string) (string, bool) {
	switch arg {
	case "--cli", "-c":
		return history.SourceCLI, true
	case "--tui", "-t":
		return history.SourceTUI, true
	case "--api", "-a":
		return history.SourceAPI, true
	}
	return "", false
}

// runHistoryList lists recorded rolls
func runHistoryList(args []string) {
	filterSource := ""

	for _, arg := range args {
		if src, ok := historySourceFlag(arg); ok {
			filterSource = src
			continue
		}
		switch arg {
		case "--clear":
			clearHistory()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
			fmt.Fprintln(os.Stderr, "Use 'redroll history --help' for usage")
			os.Exit(1)
		}
	}

	store := historyStore()
	entries, err := store.List(filterSource)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Printf("No rolls recorded in %s\n", store.Path())
		if filterSource != "" {
			fmt.Printf("(filtered by: %s)\n", filterSource)
		}
		return
	}

	fmt.Printf("Rolls in %s:\n\n", store.Path())
	// Header: #(3) + 2 + timestamp(19) + 2 + notation(14) + 2 + source(4) + 2 + total(6) = 54
	fmt.Printf("%3s  %-19s  %-14s  %-4s  %6s  %s\n", "#", "TIMESTAMP", "NOTATION", "SRC", "TOTAL", "ROLLS")
	fmt.Println(strings.Repeat("-", 72))

	for i, e := range entries {
		fmt.Printf("%3d  %s  %s\n", i+1, history.FormatEntry(e), e.Line())
	}

	fmt.Printf("\nTotal: %d entries (max: %d)\n", len(entries), cfg.MaxHistory)
	fmt.Println("\nUse 'redroll history <#>' to roll an entry again")
}

// runHistoryView re-rolls a history entry chosen by index or with the picker
func runHistoryView(args []string) {
	store := historyStore()
	entries, err := store.List("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Printf("No rolls recorded in %s\n", store.Path())
		return
	}

	var chosen history.Entry
	if len(args) == 0 {
		// No args - interactive picker
		e, ok, err := tui.RunPicker(entries)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running picker: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			// User cancelled
			return
		}
		chosen = e
	} else {
		index, err := strconv.Atoi(args[0])
		if err != nil || index < 1 {
			fmt.Fprintln(os.Stderr, "Index must be 1 or greater")
			os.Exit(1)
		}
		if index > len(entries) {
			fmt.Fprintf(os.Stderr, "Index %d out of range (only %d entries)\n", index, len(entries))
			os.Exit(1)
		}
		chosen = entries[index-1]
	}

	fmt.Printf("was:  %s\n", chosen.Line())
	result, err := newRoller(cfg.Seed).Roll(chosen.Notation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	tui.PrintResult(os.Stdout, result, 0)
	record(store, result, history.SourceCLI)
}

// clearHistory removes the roll log after confirmation
func clearHistory() {
	store := historyStore()
	entries, err := store.List("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No history to clear.")
		return
	}

	fmt.Printf("This will delete %d recorded rolls from %s\n", len(entries), store.Path())
	fmt.Print("Are you sure? (y/N): ")

	var response string
	_, _ = fmt.Scanln(&response)

	if strings.ToLower(response) != "y" {
		fmt.Println("Cancelled.")
		return
	}

	deleted, err := store.Clear()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing history: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted %d recorded rolls.\n", deleted)
}

// runServeMode serves the HTTP API until interrupted
func runServeMode(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Usage = printServeUsage
	addr := fs.String("addr", cfg.Addr, "listen address")
	seed := fs.Uint64("seed", cfg.Seed, "seed for reproducible rolls (0 = random)")
	_ = fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithAllowedOrigins(cfg.AllowedOrigins...),
	}
	if store := historyStore(); store != nil {
		opts = append(opts, server.WithHistory(store, cfg.MaxHistory))
	}
	srv := server.New(newRoller(*seed), opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, server.Config{Addr: *addr}, srv, logger); err != nil {
		logger.Error("server stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

// runVersionMode displays the version and checks for updates
func runVersionMode() {
	fmt.Printf("redroll v%s\n", version)

	// Check for updates (skip if disabled)
	if !cfg.SkipUpdateCheck {
		if latest, hasUpdate, err := updater.CheckLatest(version); err == nil && hasUpdate {
			fmt.Printf("\nUpdate available: v%s. Run 'redroll upgrade' to update (or re-run the install script).\n", latest)
		}
	}
}

// runUpgradeMode upgrades redroll to the latest version
func runUpgradeMode() {
	_, hasUpdate, err := updater.CheckLatest(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error checking for updates: %v\n", err)
		fmt.Println(updater.CurlFallbackMessage(err))
		os.Exit(1)
	}
	if !hasUpdate {
		fmt.Println("Already up to date.")
		return
	}

	newVer, err := updater.Upgrade(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", updater.CurlFallbackMessage(err))
		os.Exit(1)
	}
	fmt.Printf("Upgraded to v%s. Restart redroll to use the new version.\n", newVer)
}

func printUsage() {
	fmt.Printf(`redroll %s - Dice notation roller

USAGE:
    redroll                                  # Interactive roller
    redroll <notation>...                    # Roll and print
    redroll roll [options] <notation>...     # Roll with options
    redroll parse <notation>...              # Show formula and range
    redroll validate <notation>...           # Check notation
    redroll history [options]                # List and re-roll past rolls
    redroll serve [--addr A] [--seed S]      # Run the HTTP API

DESCRIPTION:
    redroll rolls dice written in standard notation: NdS+M, for example
    3d6, d20+4 or 4d8-1. The dice count defaults to 1; the modifier is optional.

COMMANDS:
    (none)      Interactive roller (TUI)
    roll        Roll each notation and print the result
    parse       Print the canonical formula and its min/max
    validate    Print valid/invalid per notation (exit 2 if any invalid)
    history     View and re-roll recorded rolls
    serve       Serve the HTTP and websocket API
    version     Show redroll version
    upgrade     Upgrade redroll to the latest release

GLOBAL OPTIONS:
    -h, --help      Show this help
    -v, --version   Show version (includes update check)

ENVIRONMENT:
    REDROLL_THEME                  Set to "light" or "dark" to force theme
    REDROLL_HISTORY_DIR            History directory (default: ~/.redroll)
    REDROLL_MAX_HISTORY            Rolls kept in history (default: 500)
    REDROLL_NO_HISTORY             Set to true to stop recording rolls
    REDROLL_SEED                   Non-zero seed for reproducible rolls
    REDROLL_ADDR                   serve listen address (default: 127.0.0.1:8087)
    REDROLL_ALLOWED_ORIGINS        Comma-separated browser origins allowed on /api/ws
    REDROLL_SKIP_UPDATE_CHECK      Set to true to skip update checks
    REDROLL_UPDATE_CHECK_INTERVAL  Days between TUI update checks (default: 7)

CONTROLS:
    Enter       Roll (empty input repeats the last roll)
    Up/Down     Recall previous notations
    PgUp/PgDn   Scroll the roll log
    Ctrl+L      Clear the roll log
    Esc/Ctrl+C  Quit

EXAMPLES:
    redroll 2d6+3
    redroll roll -n 4 4d6
    redroll roll --seed 42 -p d20 d20
    redroll validate 3d6 2d d20-1
    redroll history 1
    REDROLL_ADDR=:9000 redroll serve

`, version)
}

func printRollUsage() {
	fmt.Printf(`redroll roll - Roll dice

USAGE:
    redroll roll [options] <notation>...

OPTIONS:
    -n, --times N   Roll each notation N times
    --seed S        Seed for reproducible rolls (overrides REDROLL_SEED)
    -p, --print     Plain output without color

EXAMPLES:
    redroll roll 3d6
    redroll roll -n 6 4d6
    redroll roll --seed 7 d20+5

`)
}

func printHistoryUsage() {
	fmt.Printf(`redroll history - Manage recorded rolls

USAGE:
    redroll history <subcommand> [options]

DESCRIPTION:
    View and re-roll rolls stored in ~/.redroll/history.jsonl

SUBCOMMANDS:
    list            List recorded rolls (default)
    view            Interactive picker, re-rolls the chosen entry
    view <#>        Re-roll an entry (1 = most recent)

LIST OPTIONS:
    -c, --cli       Show only command line rolls
    -t, --tui       Show only interactive rolls
    -a, --api       Show only API rolls
    --clear         Delete all recorded rolls

EXAMPLES:
    redroll history                 # List all rolls
    redroll history list --api      # List only API rolls
    redroll history list --clear    # Clear history
    redroll history view            # Interactive picker
    redroll history 3               # Shorthand for 'view 3'

`)
}

func printServeUsage() {
	fmt.Printf(`redroll serve - Serve the dice API

USAGE:
    redroll serve [--addr A] [--seed S]

ROUTES:
    GET /api/healthz
    GET /api/validate/{notation}
    GET /api/parse/{notation}
    GET /api/roll/{notation}?times=N
    GET /api/history?limit=N&source=S
    GET /api/ws                         websocket: send notation, receive result

OPTIONS:
    --addr A    Listen address (default: REDROLL_ADDR or 127.0.0.1:8087)
    --seed S    Seed for reproducible rolls (default: REDROLL_SEED)

The websocket accepts clients without an Origin header, same-origin pages
and the origins listed in REDROLL_ALLOWED_ORIGINS.

`)
}
