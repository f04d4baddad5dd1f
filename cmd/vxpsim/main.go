package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/vxpsim/internal/config"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
	"github.com/san-kum/vxpsim/internal/storage"
	"github.com/san-kum/vxpsim/internal/tui"
)

var (
	dataDir     string
	sessionName string
	configFile  string
	preset      string

	seed       int64
	maxRuns    int
	force      bool
	runFlag    int
	outFile    string
	svgFile    string
	noColor    bool
	applyFlag  bool
	useMQTT    bool
	tailLines  int
	strategy   string
	saveResult bool
	trials     int
	addr       string
	maxGrams   float64
	stepGrams  float64

	pitchTurns float64
	trimMM     float64
	boltG      float64
	addAdjust  bool

	acWeight   float64
	acCG       float64
	acHours    float64
	acInitials string
)

var errNotWithinLimits = errors.New("rotor not within limits")

func main() {
	rootCmd := &cobra.Command{
		Use:           "vxpsim",
		Short:         "main rotor track and balance trainer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".vxpsim", "data directory")
	pf.StringVar(&sessionName, "session", "default", "session name")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "start a new training session",
		RunE:  initSession,
	}
	initCmd.Flags().Int64Var(&seed, "seed", 0, "noise seed (default: config or current time)")
	initCmd.Flags().IntVar(&maxRuns, "max-runs", config.DefaultMaxRuns, "number of runs")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing session")

	adjustCmd := &cobra.Command{
		Use:   "adjust [regime|all] [blade]",
		Short: "set pitch link, trim tab and bolt weight for a blade",
		Args:  cobra.ExactArgs(2),
		RunE:  adjust,
	}
	adjustCmd.Flags().Float64Var(&pitchTurns, "pitch", 0, "pitch link turns")
	adjustCmd.Flags().Float64Var(&trimMM, "trim", 0, "trim tab mm")
	adjustCmd.Flags().Float64Var(&boltG, "bolt", 0, "bolt weight grams")
	adjustCmd.Flags().BoolVar(&addAdjust, "add", false, "add to the current values instead of replacing them")

	acquireCmd := &cobra.Command{
		Use:   "acquire [regime...]",
		Short: "acquire measurements for the current run (all regimes if none given)",
		RunE:  acquire,
	}
	acquireCmd.Flags().BoolVar(&useMQTT, "mqtt", false, "publish measurements to the configured MQTT broker")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "show run, acquisition state and adjustments",
		RunE:  showStatus,
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "print the measurement report of a run",
		RunE:  showReport,
	}
	reportCmd.Flags().IntVar(&runFlag, "run", 0, "run (default: current)")
	reportCmd.Flags().BoolVar(&noColor, "no-color", false, "plain text output")

	solutionCmd := &cobra.Command{
		Use:   "solution",
		Short: "print limits and suggested corrections",
		RunE:  showSolution,
	}
	solutionCmd.Flags().IntVar(&runFlag, "run", 0, "run (default: current)")
	solutionCmd.Flags().BoolVar(&noColor, "no-color", false, "plain text output")
	solutionCmd.Flags().BoolVar(&applyFlag, "apply", false, "add the suggested corrections to the adjustments")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "check a run against the limits (exit status 1 when out of limits)",
		RunE:  check,
	}
	checkCmd.Flags().IntVar(&runFlag, "run", 0, "run (default: current)")

	nextRunCmd := &cobra.Command{
		Use:   "next-run",
		Short: "advance to the next run",
		RunE:  nextRun,
	}

	aircraftCmd := &cobra.Command{
		Use:   "aircraft",
		Short: "show or set aircraft info",
		RunE:  aircraft,
	}
	aircraftCmd.Flags().Float64Var(&acWeight, "weight", 0, "gross weight")
	aircraftCmd.Flags().Float64Var(&acCG, "cg", 0, "center of gravity")
	aircraftCmd.Flags().Float64Var(&acHours, "hours", 0, "airframe hours")
	aircraftCmd.Flags().StringVar(&acInitials, "initials", "", "operator initials")

	noteCmd := &cobra.Command{
		Use:   "note [code...]",
		Short: "toggle note codes (list them if none given)",
		RunE:  note,
	}

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "print the session event log",
		RunE:  showLog,
	}
	logCmd.Flags().IntVar(&tailLines, "tail", 0, "only the last n events")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json",
		Short: "export a run as json",
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().IntVar(&runFlag, "run", 0, "run (default: current)")
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default: stdout)")

	importJSONCmd := &cobra.Command{
		Use:   "import-json [file]",
		Short: "import a run, aircraft info and note codes from json",
		Args:  cobra.ExactArgs(1),
		RunE:  importJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv",
		Short: "export every measurement of the session as csv",
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default: stdout)")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "plot balance and track convergence across runs",
		RunE:  plotConvergence,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the worst balance per run as svg")

	polarCmd := &cobra.Command{
		Use:   "polar",
		Short: "write a polar balance chart as svg",
		RunE:  polarChart,
	}
	polarCmd.Flags().IntVar(&runFlag, "run", 0, "run (default: current)")
	polarCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default: vxp_run_<n>.svg)")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [regime]",
		Short: "plot the vibration order spectrum of a measurement",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrum,
	}
	spectrumCmd.Flags().IntVar(&runFlag, "run", 0, "run (default: current)")

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "grid-search bolt weights for the current run",
		RunE:  optimize,
	}
	optimizeCmd.Flags().BoolVar(&applyFlag, "apply", false, "add the weights to the adjustments")
	optimizeCmd.Flags().Float64Var(&maxGrams, "max-grams", 120, "largest weight per blade")
	optimizeCmd.Flags().Float64Var(&stepGrams, "step", 10, "weight step")

	exerciseCmd := &cobra.Command{
		Use:   "exercise",
		Short: "run the full procedure automatically",
		RunE:  exercise,
	}
	exerciseCmd.Flags().StringVar(&strategy, "strategy", "search", "balance strategy (search, solver)")
	exerciseCmd.Flags().Int64Var(&seed, "seed", 0, "noise seed")
	exerciseCmd.Flags().BoolVar(&saveResult, "save", false, "store the resulting session")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario of trainer actions against the session",
		Args:  cobra.ExactArgs(1),
		RunE:  scenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "repeat the automatic exercise over random seeds",
		RunE:  monteCarlo,
	}
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "master seed")
	monteCarloCmd.Flags().StringVar(&strategy, "strategy", "search", "balance strategy (search, solver)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-10s runs %d  noise %.2f mm / %.3f ips  airborne limits %.0f mm / %.2f ips\n",
					name, p.MaxRuns, p.Coefficients.TrackSigmaMM, p.Coefficients.BalanceSigmaIPS,
					p.Limits.TrackAirborneMM, p.Limits.BalanceAirborneIPS)
			}
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored sessions",
		RunE:  listSessions,
	}

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive trainer",
		RunE:  runTUI,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the session over http and stream acquisitions over websockets",
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultServeAddr, "listen address")

	rootCmd.AddCommand(initCmd, adjustCmd, acquireCmd, statusCmd, reportCmd, solutionCmd, checkCmd,
		nextRunCmd, aircraftCmd, noteCmd, logCmd, exportJSONCmd, importJSONCmd, exportCSVCmd, plotCmd,
		polarCmd, spectrumCmd, optimizeCmd, exerciseCmd, scenarioCmd, monteCarloCmd, presetsCmd, listCmd, tuiCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig applies the preset, then the config file on top of it.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	return cfg, nil
}

func newSession(cfg *config.Config) *session.Session {
	sess := session.New(cfg.SessionOptions())
	if cfg.Aircraft != (session.Aircraft{}) {
		sess.SetAircraft(cfg.Aircraft)
	}
	if cfg.Adjustments != nil {
		sess.SetAdjustments(cfg.Adjustments)
	}
	return sess
}

// openSession loads the named session or starts a new one from the config.
func openSession() (*session.Session, *config.Config, *storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	st := storage.New(dataDir)
	rec, err := st.Load(sessionName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return newSession(cfg), cfg, st, nil
	case err != nil:
		return nil, nil, nil, fmt.Errorf("failed to load session %s: %w", sessionName, err)
	}
	return session.Restore(cfg.SessionOptions(), rec.Snapshot), cfg, st, nil
}

func saveSession(st *storage.Store, sess *session.Session) error {
	if err := st.Init(); err != nil {
		return err
	}
	if err := st.Save(sessionName, sess.Snapshot()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func selectedRun(sess *session.Session) int {
	if runFlag > 0 {
		return runFlag
	}
	return sess.Run()
}

func initSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if st.Exists(sessionName) && !force {
		return fmt.Errorf("session %s already exists (use --force)", sessionName)
	}

	switch {
	case cmd.Flags().Changed("seed"):
		cfg.Seed = seed
	case cfg.Seed == 0:
		cfg.Seed = time.Now().UnixNano()
	}
	if cmd.Flags().Changed("max-runs") {
		cfg.MaxRuns = maxRuns
	}

	sess := newSession(cfg)
	if err := saveSession(st, sess); err != nil {
		return err
	}
	fmt.Printf("session: %s\n", sessionName)
	fmt.Printf("seed: %d\n", sess.Seed())
	fmt.Printf("runs: %d\n", sess.MaxRuns())
	return nil
}

func parseRegimes(name string) ([]rotor.Regime, error) {
	if name == "all" || name == "ALL" {
		return rotor.Regimes, nil
	}
	r, err := rotor.ParseRegime(name)
	if err != nil {
		return nil, err
	}
	return []rotor.Regime{r}, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	sess, _, st, err := openSession()
	if err != nil {
		return err
	}
	return tui.Run(sess, func(s *session.Session) error { return saveSession(st, s) })
}
