package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/vxpsim/internal/analysis"
	"github.com/san-kum/vxpsim/internal/automation"
	"github.com/san-kum/vxpsim/internal/compliance"
	"github.com/san-kum/vxpsim/internal/experiment"
	"github.com/san-kum/vxpsim/internal/export"
	"github.com/san-kum/vxpsim/internal/live"
	"github.com/san-kum/vxpsim/internal/metrics"
	"github.com/san-kum/vxpsim/internal/noise"
	"github.com/san-kum/vxpsim/internal/optim"
	"github.com/san-kum/vxpsim/internal/publish"
	"github.com/san-kum/vxpsim/internal/report"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
	"github.com/san-kum/vxpsim/internal/storage"
	"github.com/san-kum/vxpsim/internal/store"
)

func adjust(cmd *cobra.Command, args []string) error {
	regimes, err := parseRegimes(args[0])
	if err != nil {
		return err
	}
	blade, err := rotor.ParseBlade(args[1])
	if err != nil {
		return err
	}

	sess, _, st, err := openSession()
	if err != nil {
		return err
	}

	adj := sess.Adjustments()
	for _, r := range regimes {
		v := adj.Get(r, blade)
		if addAdjust {
			v.PitchTurns += pitchTurns
			v.TrimMM += trimMM
			v.BoltG += boltG
		} else {
			if cmd.Flags().Changed("pitch") {
				v.PitchTurns = pitchTurns
			}
			if cmd.Flags().Changed("trim") {
				v.TrimMM = trimMM
			}
			if cmd.Flags().Changed("bolt") {
				v.BoltG = boltG
			}
		}
		if v.BoltG < 0 {
			return fmt.Errorf("bolt weight cannot be negative: %.0f g", v.BoltG)
		}
		sess.SetAdjustment(r, blade, v)
		fmt.Printf("%-18s %s  pitch %+.2f turns  trim %+.2f mm  bolt %.0f g\n", r.Label(), blade, v.PitchTurns, v.TrimMM, v.BoltG)
	}
	return saveSession(st, sess)
}

func acquire(cmd *cobra.Command, args []string) error {
	sess, cfg, st, err := openSession()
	if err != nil {
		return err
	}

	var pub *publish.Publisher
	if useMQTT {
		p, disconnect, err := publish.Connect(publish.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Prefix:   cfg.MQTT.Topic,
			Retain:   cfg.MQTT.Retain,
		})
		if err != nil {
			return err
		}
		defer disconnect()
		pub = p
		sess.AddObserver(pub)
	}

	var acquired []rotor.Measurement
	if len(args) == 0 {
		set, err := sess.AcquireAll(context.Background())
		if err != nil {
			return err
		}
		for _, r := range rotor.Regimes {
			acquired = append(acquired, set[r])
		}
	} else {
		for _, name := range args {
			r, err := rotor.ParseRegime(name)
			if err != nil {
				return err
			}
			acquired = append(acquired, sess.Acquire(r))
		}
	}

	fmt.Printf("run %d\n", sess.Run())
	for _, m := range acquired {
		fmt.Printf("  %-18s %.3f ips @ %s  spread %.1f mm\n",
			m.Regime.Label(), m.Balance.AmpIPS, rotor.ClockLabel(m.Balance.PhaseDeg), compliance.TrackSpread(m))
	}
	if pub != nil {
		fmt.Printf("published %d message(s) to %s\n", pub.Sent(), cfg.MQTT.Broker)
		if err := pub.Err(); err != nil {
			fmt.Printf("publish errors: %v\n", err)
		}
	}
	return saveSession(st, sess)
}

func showStatus(cmd *cobra.Command, args []string) error {
	sess, _, _, err := openSession()
	if err != nil {
		return err
	}
	run := sess.Run()

	fmt.Printf("session: %s  seed: %d\n", sessionName, sess.Seed())
	states := make(map[rotor.Regime]bool, len(rotor.Regimes))
	for _, r := range rotor.Regimes {
		states[r] = sess.State(run, r) == session.Acquired
	}
	fmt.Printf("%s of %d\n", report.Status(run, states, report.Options{Color: true}), sess.MaxRuns())
	if sess.Passed() {
		fmt.Println("PASSED: final run within limits")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nREGIME\tBLADE\tPITCH\tTRIM\tBOLT")
	adj := sess.Adjustments()
	for _, r := range rotor.Regimes {
		for _, b := range rotor.Blades {
			v := adj.Get(r, b)
			if v == (rotor.BladeAdjustment{}) {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%+.2f\t%+.2f\t%.0f\n", r, b, v.PitchTurns, v.TrimMM, v.BoltG)
		}
	}
	return w.Flush()
}

func showReport(cmd *cobra.Command, args []string) error {
	sess, _, _, err := openSession()
	if err != nil {
		return err
	}
	run := selectedRun(sess)
	fmt.Println(report.Results(run, sess.Measurements(run), sess.Solver(), report.Options{Color: !noColor}))
	return nil
}

func showSolution(cmd *cobra.Command, args []string) error {
	sess, _, st, err := openSession()
	if err != nil {
		return err
	}
	run := selectedRun(sess)
	set := sess.Measurements(run)
	fmt.Println(report.Solution(run, set, sess.Solver(), sess.Limits(), report.Options{Color: !noColor}))

	if !applyFlag {
		return nil
	}
	if len(set) == 0 {
		return fmt.Errorf("run %d has no measurements", run)
	}
	sess.ApplySolution(sess.Solve(run))
	fmt.Println("\nsolution added to the adjustments")
	return saveSession(st, sess)
}

func check(cmd *cobra.Command, args []string) error {
	sess, _, _, err := openSession()
	if err != nil {
		return err
	}
	run := selectedRun(sess)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REGIME\tSPREAD\tLIMIT\tBALANCE\tLIMIT\tRESULT")
	for _, st := range sess.Evaluate(run) {
		if !st.Present {
			fmt.Fprintf(w, "%s\t-\t%.0f mm\t-\t%.2f ips\tMISSING\n", st.Regime, st.TrackLimit, st.BalanceLimit)
			continue
		}
		result := "OK"
		if !st.OK() {
			result = "OUT"
		}
		fmt.Fprintf(w, "%s\t%.1f mm\t%.0f mm\t%.3f ips\t%.2f ips\t%s\n",
			st.Regime, st.Spread, st.TrackLimit, st.AmpIPS, st.BalanceLimit, result)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !sess.AllOK(run) {
		return fmt.Errorf("run %d: %w", run, errNotWithinLimits)
	}
	fmt.Printf("run %d: all regimes within limits\n", run)
	return nil
}

func nextRun(cmd *cobra.Command, args []string) error {
	sess, _, st, err := openSession()
	if err != nil {
		return err
	}
	if !sess.RunSet().Complete(sess.Run()) {
		fmt.Printf("warning: run %d is not fully acquired\n", sess.Run())
	}
	if err := sess.NextRun(); err != nil {
		return err
	}
	fmt.Printf("run %d of %d\n", sess.Run(), sess.MaxRuns())
	return saveSession(st, sess)
}

func aircraft(cmd *cobra.Command, args []string) error {
	sess, _, st, err := openSession()
	if err != nil {
		return err
	}

	a := sess.Aircraft()
	changed := false
	if cmd.Flags().Changed("weight") {
		a.Weight, changed = acWeight, true
	}
	if cmd.Flags().Changed("cg") {
		a.CG, changed = acCG, true
	}
	if cmd.Flags().Changed("hours") {
		a.Hours, changed = acHours, true
	}
	if cmd.Flags().Changed("initials") {
		a.Initials, changed = acInitials, true
	}

	fmt.Printf("weight:   %.1f\n", a.Weight)
	fmt.Printf("cg:       %.2f\n", a.CG)
	fmt.Printf("hours:    %.1f\n", a.Hours)
	fmt.Printf("initials: %s\n", a.Initials)

	if !changed {
		return nil
	}
	sess.SetAircraft(a)
	return saveSession(st, sess)
}

func note(cmd *cobra.Command, args []string) error {
	sess, _, st, err := openSession()
	if err != nil {
		return err
	}

	for _, arg := range args {
		code, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid note code %q: %w", arg, err)
		}
		if _, err := sess.ToggleNoteCode(code); err != nil {
			return err
		}
	}

	active := make(map[int]bool)
	for _, c := range sess.NoteCodes() {
		active[c] = true
	}
	for _, nc := range session.NoteCodes {
		mark := " "
		if active[nc.Code] {
			mark = "x"
		}
		fmt.Printf("  [%s] %02d %s\n", mark, nc.Code, nc.Name)
	}

	if len(args) == 0 {
		return nil
	}
	return saveSession(st, sess)
}

func showLog(cmd *cobra.Command, args []string) error {
	sess, _, _, err := openSession()
	if err != nil {
		return err
	}
	events := sess.Events()
	if tailLines > 0 && len(events) > tailLines {
		events = events[len(events)-tailLines:]
	}
	for _, e := range events {
		fmt.Println(e)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	sess, _, _, err := openSession()
	if err != nil {
		return err
	}
	blob := store.NewRunBlob(sess, selectedRun(sess))
	if outFile == "" {
		return store.ExportJSONStdout(blob)
	}
	if err := store.ExportJSON(outFile, blob); err != nil {
		return err
	}
	fmt.Printf("exported run %d to %s\n", blob.Run, outFile)
	return nil
}

func importJSON(cmd *cobra.Command, args []string) error {
	blob, err := store.ImportJSON(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	sess, _, st, err := openSession()
	if err != nil {
		return err
	}
	if err := blob.Apply(sess); err != nil {
		return err
	}
	fmt.Printf("imported run %d: %d regime(s), aircraft info and %d note code(s)\n",
		blob.Run, len(blob.Measurements), len(blob.NoteCodes))
	return saveSession(st, sess)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	sess, _, _, err := openSession()
	if err != nil {
		return err
	}
	runs := make(map[int]rotor.MeasurementSet)
	for _, run := range sess.RunSet().Runs() {
		runs[run] = sess.Measurements(run)
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := storage.WriteCSV(out, runs); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Printf("exported %d run(s) to %s\n", len(runs), outFile)
	}
	return nil
}

func plotConvergence(cmd *cobra.Command, args []string) error {
	sess, _, _, err := openSession()
	if err != nil {
		return err
	}
	runs := sess.RunSet().Runs()
	if len(runs) == 0 {
		return fmt.Errorf("no data to plot")
	}

	ms := metrics.Defaults(sess.Limits())
	series := make(map[string][]float64)
	for _, run := range runs {
		for name, v := range metrics.Collect(ms, sess.Measurements(run)) {
			series[name] = append(series[name], v)
		}
	}

	fmt.Printf("session: %s\n", sessionName)
	fmt.Printf("runs: %v\n\n", runs)
	for _, m := range ms {
		data := series[m.Name()]
		if len(data) == 1 {
			data = append(data, data[0])
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Precision(3),
			asciigraph.Caption(m.Name()+" per run"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgFile != "" {
		points := make([]export.Point, len(runs))
		for i, run := range runs {
			points[i] = export.Point{X: float64(run), Y: series["worst_balance_ips"][i]}
		}
		svg := export.TrajectoryToSVG(points, 480, 240, export.RegimeColors[rotor.Horizontal])
		if svg == "" {
			return fmt.Errorf("need at least two runs for an svg trend")
		}
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}

func polarChart(cmd *cobra.Command, args []string) error {
	sess, _, _, err := openSession()
	if err != nil {
		return err
	}
	run := selectedRun(sess)
	set := sess.Measurements(run)
	if len(set) == 0 {
		return fmt.Errorf("run %d has no measurements", run)
	}

	path := outFile
	if path == "" {
		path = fmt.Sprintf("vxp_run_%d.svg", run)
	}
	svg := export.PolarToSVG(export.PointsFromSet(set), 0, 480)
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func spectrum(cmd *cobra.Command, args []string) error {
	regime, err := rotor.ParseRegime(args[0])
	if err != nil {
		return err
	}
	sess, _, _, err := openSession()
	if err != nil {
		return err
	}
	run := selectedRun(sess)
	m, ok := sess.RunSet().Get(run, regime)
	if !ok {
		return fmt.Errorf("run %d: %s not acquired", run, regime)
	}

	src := noise.NewGaussian(noise.Derive(sess.Seed(), run, "trace/"+regime.String(), 0))
	trace := analysis.Synthesize(m.Balance, analysis.DefaultTraceConfig(), src)
	got := analysis.Extract(trace)
	orders := analysis.OrderSpectrum(trace, 8)

	fmt.Printf("run %d  %s  %.0f rpm  %.1f samples/s\n", run, regime.Label(), trace.RPM, trace.SampleRate())
	fmt.Printf("measured 1/rev:  %.3f ips @ %s\n", m.Balance.AmpIPS, rotor.ClockLabel(m.Balance.PhaseDeg))
	fmt.Printf("extracted 1/rev: %.3f ips @ %s\n\n", got.AmpIPS, rotor.ClockLabel(got.PhaseDeg))
	fmt.Println(asciigraph.Plot(orders,
		asciigraph.Height(10),
		asciigraph.Width(64),
		asciigraph.Precision(3),
		asciigraph.Caption("amplitude (ips) by rotor order 0-8"),
	))
	return nil
}

func optimize(cmd *cobra.Command, args []string) error {
	sess, _, st, err := openSession()
	if err != nil {
		return err
	}
	run := sess.Run()

	ws := optim.NewWeightSearch(sess.Simulator(), sess.Limits())
	ws.MaxGrams = maxGrams
	ws.StepGrams = stepGrams

	before := ws.Score(run, sess.Adjustments())
	plan, err := ws.Search(context.Background(), run, sess.Adjustments())
	if err != nil {
		return err
	}

	fmt.Printf("run %d weight search (0-%.0f g, step %.0f g)\n", run, maxGrams, stepGrams)
	for _, b := range rotor.Blades {
		fmt.Printf("  %s: +%.0f g\n", b, plan.Grams[b])
	}
	fmt.Printf("worst balance / limit: %.2f -> %.2f\n", before, plan.Score)

	if !applyFlag {
		return nil
	}
	sess.SetAdjustments(plan.Apply(sess.Adjustments()))
	fmt.Println("weights added to the adjustments")
	return saveSession(st, sess)
}

func exercise(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	strat, err := experiment.ParseStrategy(strategy)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}

	exp := experiment.New(experiment.Config{Options: cfg.SessionOptions(), Strategy: strat})
	fmt.Printf("running %s exercise (seed %d)...\n", strat, cfg.Seed)
	res, err := exp.Run(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tBALANCE\t->\tSPREAD\t->\tWEIGHT\tRESULT")
	for _, rr := range res.Runs {
		result := "OK"
		if !rr.OK {
			result = "OUT"
		}
		fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.1f\t%.1f\t%.0f g\t%s\n", rr.Run,
			rr.AsFound["worst_balance_ips"], rr.Final["worst_balance_ips"],
			rr.AsFound["max_spread_mm"], rr.Final["max_spread_mm"],
			rr.TotalGrams(), result)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if res.Passed {
		fmt.Println("\nPASSED")
	} else {
		fmt.Println("\nNOT PASSED")
	}

	if saveResult {
		if err := saveSession(storage.New(dataDir), res.Session); err != nil {
			return err
		}
		fmt.Printf("saved as session %s\n", sessionName)
	}
	return nil
}

func scenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}
	sess, _, st, err := openSession()
	if err != nil {
		return err
	}

	if sc.Name != "" {
		fmt.Printf("scenario: %s\n", sc.Name)
	}
	results, err := automation.RunScenario(context.Background(), sc, sess)
	for _, r := range results {
		fmt.Printf("  %2d  run %d  %-15s %s\n", r.Step, r.Run, r.Action, r.Detail)
	}
	if saveErr := saveSession(st, sess); saveErr != nil && err == nil {
		err = saveErr
	}
	return err
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	strat, err := experiment.ParseStrategy(strategy)
	if err != nil {
		return err
	}

	mc := &automation.MonteCarloConfig{
		Options:   cfg.SessionOptions(),
		Strategy:  strat,
		NumTrials: trials,
		Seed:      seed,
	}
	fmt.Printf("running %d %s trials...\n", trials, strat)
	results, err := automation.RunMonteCarlo(context.Background(), mc)
	if err != nil {
		return err
	}

	passed, failed := automation.MonteCarloStats(results)
	grams := make([]float64, 0, len(results))
	for _, r := range results {
		grams = append(grams, r.Grams)
		if !r.Passed {
			fmt.Printf("  trial %d (seed %d) not passed\n", r.TrialID, r.Seed)
		}
	}
	fmt.Printf("passed: %d  failed: %d  pass rate: %.0f%%\n", passed, failed, 100*float64(passed)/float64(max(len(results), 1)))
	if len(grams) > 1 {
		fmt.Println(asciigraph.Plot(grams, asciigraph.Height(6), asciigraph.Width(60), asciigraph.Caption("weight added per trial (g)")))
	}
	return nil
}

func listSessions(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	infos, err := st.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no sessions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUPDATED\tRUN\tACQUIRED\tSEED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%d\n",
			info.ID,
			info.Updated.Format("2006-01-02 15:04:05"),
			info.Run, info.MaxRuns,
			info.Acquired,
			info.Seed,
		)
	}
	return w.Flush()
}

func serve(cmd *cobra.Command, args []string) error {
	sess, cfg, st, err := openSession()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("addr") && cfg.Serve.Addr != "" {
		addr = cfg.Serve.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	room := live.NewRoom(logger)
	go room.Run(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: live.NewServer(sess, room, func(s *session.Session) error { return saveSession(st, s) }),
	}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	logger.Printf("serving session %s on %s", sessionName, addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
