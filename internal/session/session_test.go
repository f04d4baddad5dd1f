package session_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
	"github.com/san-kum/vxpsim/internal/sim"
)

type recorder struct {
	runs     []int
	measured []rotor.Regime
}

func (r *recorder) OnAcquire(run int, m rotor.Measurement) {
	r.runs = append(r.runs, run)
	r.measured = append(r.measured, m.Regime)
}

func quietOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Coefficients.TrackSigmaMM = 0
	opts.Coefficients.BalanceSigmaIPS = 0
	return opts
}

var _ = Describe("RunSet", func() {
	var rs *session.RunSet

	BeforeEach(func() {
		rs = session.NewRunSet()
	})

	It("starts with every regime not acquired", func() {
		for _, r := range rotor.Regimes {
			Expect(rs.State(1, r)).To(Equal(session.NotAcquired))
		}
		Expect(rs.Complete(1)).To(BeFalse())
		Expect(rs.Runs()).To(BeEmpty())
		Expect(rs.Measurements(1)).To(BeEmpty())
	})

	It("overwrites on re-acquisition", func() {
		rs.Put(1, rotor.Measurement{Regime: rotor.Hover, Balance: rotor.BalanceReading{AmpIPS: 0.1}})
		rs.Put(1, rotor.Measurement{Regime: rotor.Hover, Balance: rotor.BalanceReading{AmpIPS: 0.2}})

		m, ok := rs.Get(1, rotor.Hover)
		Expect(ok).To(BeTrue())
		Expect(m.Balance.AmpIPS).To(Equal(0.2))
		Expect(rs.Measurements(1)).To(HaveLen(1))
		Expect(rs.State(1, rotor.Hover)).To(Equal(session.Acquired))
	})

	It("is complete once all canonical regimes are present", func() {
		for _, r := range rotor.Regimes {
			rs.Put(2, rotor.Measurement{Regime: r})
		}
		Expect(rs.Complete(2)).To(BeTrue())
		Expect(rs.Complete(1)).To(BeFalse())
		Expect(rs.Runs()).To(Equal([]int{2}))
	})
})

var _ = Describe("Session", func() {
	var s *session.Session

	BeforeEach(func() {
		s = session.New(quietOptions())
	})

	It("starts on run 1 with neutral adjustments", func() {
		Expect(s.Run()).To(Equal(1))
		Expect(s.Adjustments()).To(Equal(rotor.NeutralAdjustments()))
	})

	It("acquires a regime into the current run", func() {
		m := s.Acquire(rotor.Ground)

		Expect(m.Track[rotor.BLU]).To(Equal(18.0))
		Expect(s.State(1, rotor.Ground)).To(Equal(session.Acquired))
		Expect(s.State(1, rotor.Hover)).To(Equal(session.NotAcquired))
	})

	It("does not rewrite stored measurements when adjustments change", func() {
		s.Acquire(rotor.Ground)
		s.SetAdjustment(rotor.Ground, rotor.BLU, rotor.BladeAdjustment{PitchTurns: -1})

		stored, _ := s.RunSet().Get(1, rotor.Ground)
		Expect(stored.Track[rotor.BLU]).To(Equal(18.0))

		again := s.Acquire(rotor.Ground)
		Expect(again.Track[rotor.BLU]).To(Equal(8.0))
	})

	It("acquires all regimes at once", func() {
		set, err := s.AcquireAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(set).To(HaveLen(len(rotor.Regimes)))
		Expect(s.RunSet().Complete(1)).To(BeTrue())
	})

	It("notifies observers after each acquisition", func() {
		rec := &recorder{}
		s.AddObserver(rec)

		s.Acquire(rotor.Hover)
		_, err := s.AcquireAll(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.measured).To(Equal([]rotor.Regime{rotor.Hover, rotor.Ground, rotor.Hover, rotor.Horizontal}))
		Expect(rec.runs).To(HaveEach(1))
	})

	It("advances runs up to the configured maximum", func() {
		s.SetAdjustment(rotor.Ground, rotor.RED, rotor.BladeAdjustment{BoltG: 20})

		Expect(s.NextRun()).To(Succeed())
		Expect(s.Run()).To(Equal(2))
		Expect(s.Adjustments().Get(rotor.Ground, rotor.RED).BoltG).To(BeZero())

		Expect(s.NextRun()).To(Succeed())
		Expect(s.NextRun()).To(MatchError(session.ErrLastRun))
		Expect(s.Run()).To(Equal(3))
	})

	It("keeps adjustments across runs when asked to", func() {
		opts := quietOptions()
		opts.KeepAdjustments = true
		s = session.New(opts)
		s.SetAdjustment(rotor.Hover, rotor.GRN, rotor.BladeAdjustment{PitchTurns: 0.5})

		Expect(s.NextRun()).To(Succeed())
		Expect(s.Adjustments().Get(rotor.Hover, rotor.GRN).PitchTurns).To(Equal(0.5))
	})

	It("reproduces noisy acquisitions from the same seed", func() {
		opts := session.DefaultOptions()
		opts.Seed = 1234
		a, b := session.New(opts), session.New(opts)

		first := a.Acquire(rotor.Hover)
		Expect(first).To(Equal(b.Acquire(rotor.Hover)))

		second := a.Acquire(rotor.Hover)
		Expect(second).NotTo(Equal(first))
	})

	It("passes only on a complete, compliant final run", func() {
		Expect(s.Passed()).To(BeFalse())
		Expect(s.NextRun()).To(Succeed())
		Expect(s.NextRun()).To(Succeed())

		_, err := s.AcquireAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		// run 3 hover sits at 0.08 ips, over the 0.05 airborne limit
		Expect(s.Passed()).To(BeFalse())

		// RED 30 g and BLU 20 g pull the airborne vectors under the limit
		for _, r := range rotor.Regimes {
			s.SetAdjustment(r, rotor.RED, rotor.BladeAdjustment{BoltG: 30})
			s.SetAdjustment(r, rotor.BLU, rotor.BladeAdjustment{BoltG: 20})
		}
		_, err = s.AcquireAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Passed()).To(BeTrue())
	})

	It("toggles note codes and rejects unknown ones", func() {
		on, err := s.ToggleNoteCode(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(on).To(BeTrue())
		Expect(s.NoteCodes()).To(Equal([]int{1}))

		on, _ = s.ToggleNoteCode(1)
		Expect(on).To(BeFalse())
		Expect(s.NoteCodes()).To(BeEmpty())

		_, err = s.ToggleNoteCode(42)
		Expect(err).To(MatchError(session.ErrUnknownNoteCode))
	})

	It("bounds the event log", func() {
		for i := 0; i < 300; i++ {
			s.SetAdjustment(rotor.Ground, rotor.BLU, rotor.BladeAdjustment{PitchTurns: float64(i)})
		}
		events := s.Events()
		Expect(len(events)).To(BeNumerically("<=", 250))
		Expect(events[len(events)-1].Message).To(ContainSubstring("+299.00"))
	})

	It("rejects imports into run 0", func() {
		Expect(s.ImportRun(0, rotor.MeasurementSet{})).To(MatchError(session.ErrInvalidRun))
	})

	It("round-trips through a JSON snapshot", func() {
		s.SetAircraft(session.Aircraft{Weight: 2300, CG: 3.1, Hours: 1520.5, Initials: "JD"})
		_, _ = s.ToggleNoteCode(3)
		s.SetAdjustment(rotor.Horizontal, rotor.RED, rotor.BladeAdjustment{TrimMM: -0.5})
		s.Acquire(rotor.Horizontal)
		Expect(s.NextRun()).To(Succeed())
		s.Acquire(rotor.Ground)

		data, err := json.Marshal(s.Snapshot())
		Expect(err).NotTo(HaveOccurred())

		var snap session.Snapshot
		Expect(json.Unmarshal(data, &snap)).To(Succeed())

		restored := session.Restore(quietOptions(), snap)
		Expect(restored.Run()).To(Equal(2))
		Expect(restored.Aircraft()).To(Equal(s.Aircraft()))
		Expect(restored.NoteCodes()).To(Equal([]int{3}))
		Expect(restored.Measurements(1)).To(Equal(s.Measurements(1)))
		Expect(restored.Measurements(2)).To(Equal(s.Measurements(2)))
		Expect(restored.Adjustments()).To(Equal(s.Adjustments()))
		Expect(restored.Events()).To(HaveLen(len(s.Events())))
	})

	It("uses the configured coefficients", func() {
		opts := quietOptions()
		opts.Coefficients.RPM = 400
		s = session.New(opts)
		Expect(s.Acquire(rotor.Ground).Balance.RPM).To(Equal(400.0))
		Expect(s.Simulator().Coefficients().PitchLinkMMPerTurn).To(Equal(sim.DefaultPitchLinkMMPerTurn))
	})
})
