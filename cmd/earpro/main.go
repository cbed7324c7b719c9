// Package main provides the CLI entrypoint for earpro.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/qvreis/earpro/internal/audio"
	"github.com/qvreis/earpro/internal/config"
	"github.com/qvreis/earpro/internal/generator"
	"github.com/qvreis/earpro/internal/model"
	"github.com/qvreis/earpro/internal/stats"
	"github.com/qvreis/earpro/internal/statsui"
	"github.com/qvreis/earpro/internal/store"
	"github.com/qvreis/earpro/internal/tui"
)

const (
	defaultRangeMin   = 48
	defaultRangeMax   = 72
	defaultQuestions  = 10
	minQuestions      = 5
	maxQuestions      = 50
	defaultInstrument = "piano"
	defaultDirection  = "asc"
	defaultWeakWindow = 20
	defaultWeakTop    = 4
	defaultSampleURL  = "https://gleitz.github.io/midi-js-soundfonts/FluidR3_GM"
)

var (
	practiceRangeMin   int
	practiceRangeMax   int
	practiceQuestions  int
	practiceDirections []string
	practiceIntervals  []string
	practiceInstrument string
	practiceSampleURL  string

	reviewPool    string
	reviewWeak    bool
	reviewWeakTop int

	statsSince      string
	statsLast       int
	statsWeakWindow int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "earpro",
		Short:         "TUI interval ear trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	addPracticeFlags(rootCmd)

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newReviewCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func addPracticeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&practiceRangeMin, "range-min", defaultRangeMin, "lowest root pitch (MIDI)")
	cmd.Flags().IntVar(&practiceRangeMax, "range-max", defaultRangeMax, "highest root pitch (MIDI)")
	cmd.Flags().IntVar(&practiceQuestions, "questions", defaultQuestions, fmt.Sprintf("questions per session (%d-%d)", minQuestions, maxQuestions))
	cmd.Flags().StringSliceVar(&practiceDirections, "direction", []string{defaultDirection}, "playback directions (asc, desc, harmonic, random)")
	cmd.Flags().StringSliceVar(&practiceIntervals, "interval", nil, "interval ids to practice (default: all)")
	cmd.Flags().StringVar(&practiceInstrument, "instrument", defaultInstrument, "instrument (piano, guitar, ukulele)")
	cmd.Flags().StringVar(&practiceSampleURL, "sample-url", defaultSampleURL, "base URL for instrument samples")
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadPracticeConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	gen := generator.New()
	queue, err := gen.Fresh(cfg)
	if err != nil {
		return err
	}
	return runSession(cfg, model.ModeFresh, st, queue)
}

func loadPracticeConfig(cmd *cobra.Command) (model.SessionConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.SessionConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "range-min", &practiceRangeMin, fileCfg.Practice.RangeMin)
	applyIntConfig(cmd, "range-max", &practiceRangeMax, fileCfg.Practice.RangeMax)
	applyIntConfig(cmd, "questions", &practiceQuestions, fileCfg.Practice.Questions)
	applyStringSliceConfig(cmd, "direction", &practiceDirections, fileCfg.Practice.Directions)
	applyStringSliceConfig(cmd, "interval", &practiceIntervals, fileCfg.Practice.Intervals)
	applyStringConfig(cmd, "instrument", &practiceInstrument, fileCfg.Practice.Instrument)
	applyStringConfig(cmd, "sample-url", &practiceSampleURL, fileCfg.Practice.SampleBaseURL)

	intervals, err := resolveIntervals(practiceIntervals)
	if err != nil {
		return model.SessionConfig{}, err
	}
	directions, err := resolveDirections(practiceDirections)
	if err != nil {
		return model.SessionConfig{}, err
	}

	cfg := model.SessionConfig{
		RangeMin:      practiceRangeMin,
		RangeMax:      practiceRangeMax,
		Directions:    directions,
		QuestionCount: clampQuestions(practiceQuestions),
		Intervals:     intervals,
		Instrument:    model.InstrumentID(practiceInstrument),
		SampleBaseURL: strings.TrimRight(practiceSampleURL, "/"),
	}
	if err := validateConfig(cfg); err != nil {
		return model.SessionConfig{}, err
	}
	return cfg, nil
}

func runSession(cfg model.SessionConfig, mode model.SessionMode, st *store.Store, queue []model.Question) error {
	bank := audio.NewBank(cfg.SampleBaseURL, nil, logErrf)
	bank.SetCacheDir(config.DefaultSampleCacheDir())
	engine := audio.NewEngine(bank, logErrf)
	if err := engine.Start(); err != nil {
		logErrf("audio device unavailable, running silent: %v\n", err)
		engine.StartHeadless()
	}

	m := tui.NewModel(cfg, mode, st, engine, queue)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Practice items from the review pools",
		Args:  cobra.NoArgs,
		RunE:  runReviewCmd,
	}
	addPracticeFlags(cmd)
	cmd.Flags().StringVar(&reviewPool, "pool", "mistakes", "pool to review (mistakes, slow)")
	cmd.Flags().BoolVar(&reviewWeak, "weak", false, "practice weakest intervals instead of a pool")
	cmd.Flags().IntVar(&reviewWeakTop, "weak-top", defaultWeakTop, "number of weak intervals to practice")
	return cmd
}

func runReviewCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadPracticeConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	gen := generator.New()
	if reviewWeak {
		return runWeakReview(cmd.Context(), cfg, st, gen)
	}

	pool, err := resolvePool(reviewPool)
	if err != nil {
		return err
	}
	entries, err := st.ListPool(cmd.Context(), pool)
	if err != nil {
		return fmt.Errorf("failed to load pool: %w", err)
	}
	queue, err := gen.Review(cfg, entries)
	if err != nil {
		if errors.Is(err, generator.ErrEmptyQueue) {
			return fmt.Errorf("the %s pool is empty; practice first with: earpro", reviewPool)
		}
		return err
	}
	return runSession(cfg, model.ModeReview, st, queue)
}

// runWeakReview builds a fresh session restricted to the lowest-accuracy
// intervals of recent history.
func runWeakReview(ctx context.Context, cfg model.SessionConfig, st *store.Store, gen *generator.Generator) error {
	aggs, err := st.GetWeakIntervals(ctx, defaultWeakWindow)
	if err != nil {
		return fmt.Errorf("failed to load weak intervals: %w", err)
	}
	weak := stats.SelectWeakIntervals(aggs, reviewWeakTop)
	if len(weak) == 0 {
		return fmt.Errorf("no session history yet; practice first with: earpro")
	}
	cfg.Intervals = weak
	queue, err := gen.Fresh(cfg)
	if err != nil {
		return err
	}
	return runSession(cfg, model.ModeReview, st, queue)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsWeakWindow, "weak-window", defaultWeakWindow, "recent sessions used for interval stats")
	return cmd
}

func runStatsCmd(_ *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}

	cfg := model.StatsConfig{
		Since:      sinceTime,
		Last:       statsLast,
		WeakWindow: statsWeakWindow,
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

func resolveIntervals(ids []string) ([]model.IntervalID, error) {
	if len(ids) == 0 {
		return model.AllIntervalIDs(), nil
	}
	out := make([]model.IntervalID, 0, len(ids))
	for _, raw := range ids {
		id := model.IntervalID(strings.TrimSpace(raw))
		if _, ok := model.IntervalByID(id); !ok {
			return nil, fmt.Errorf("unknown interval %q (available: %s)", raw, joinIntervalIDs())
		}
		out = append(out, id)
	}
	return out, nil
}

func joinIntervalIDs() string {
	ids := model.AllIntervalIDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func resolveDirections(dirs []string) ([]model.Direction, error) {
	if len(dirs) == 0 {
		return []model.Direction{model.DirectionAscending}, nil
	}
	out := make([]model.Direction, 0, len(dirs))
	for _, raw := range dirs {
		switch d := model.Direction(strings.TrimSpace(strings.ToLower(raw))); d {
		case model.DirectionAscending, model.DirectionDescending, model.DirectionHarmonic, model.DirectionRandom:
			out = append(out, d)
		default:
			return nil, fmt.Errorf("unknown direction %q (use asc, desc, harmonic, random)", raw)
		}
	}
	return out, nil
}

func resolvePool(name string) (store.Pool, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "mistakes":
		return store.PoolMistakes, nil
	case "slow", "slow_responses":
		return store.PoolSlow, nil
	}
	return "", fmt.Errorf("unknown pool %q (use mistakes or slow)", name)
}

func clampQuestions(n int) int {
	if n < minQuestions {
		return minQuestions
	}
	if n > maxQuestions {
		return maxQuestions
	}
	return n
}

func validateConfig(cfg model.SessionConfig) error {
	if cfg.RangeMin < 0 || cfg.RangeMax > 127 {
		return fmt.Errorf("--range-min/--range-max must be within 0-127")
	}
	if cfg.RangeMin >= cfg.RangeMax {
		return fmt.Errorf("--range-min must be below --range-max")
	}
	if _, ok := model.InstrumentByID(cfg.Instrument); !ok {
		return fmt.Errorf("unknown instrument %q (use piano, guitar, ukulele)", cfg.Instrument)
	}
	if cfg.SampleBaseURL == "" {
		return fmt.Errorf("--sample-url must not be empty")
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value *[]string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), (*value)...)
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# earpro configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# range-min = %d           # Lowest root pitch (MIDI)
# range-max = %d           # Highest root pitch (MIDI)
# questions = %d           # Questions per session (%d-%d)
# directions = ["asc"]     # Playback directions (asc, desc, harmonic, random)
# intervals = ["m3", "P5"] # Interval ids to practice (default: all)
# instrument = %q          # Instrument (piano, guitar, ukulele)
# sample-base-url = %q     # Base URL for instrument samples
`,
		defaultRangeMin,
		defaultRangeMax,
		defaultQuestions,
		minQuestions,
		maxQuestions,
		defaultInstrument,
		defaultSampleURL,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
