package lander_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/rng"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(200 * time.Millisecond)
		return t
	}
}

var _ = Describe("Model", func() {
	var m *lander.Model

	BeforeEach(func() {
		m = lander.New(lander.WithSource(rng.Zero{}), lander.WithClock(fixedClock()))
	})

	Describe("proportional descent", func() {
		It("tracks throttle = clamp(5 * altitude) with a noise-free source", func() {
			m.SetThrusters(true)
			m.SetPIDGains("0.5", "0", "0")

			for i := 0; i < 50; i++ {
				prev := m.Snapshot()
				s := m.Advance()

				want := math.Max(0, math.Min(0.5*prev.Altitude*10, 100))
				Expect(s.Throttle).To(BeNumerically("~", want, 1e-9), "tick %d", i)
				Expect(s.Acceleration).To(BeNumerically("~", s.Throttle/10, 1e-9))
				Expect(s.Controller.Output).To(BeNumerically("~", 0.5*prev.Altitude, 1e-9))
			}
		})

		It("burns fuel and heats up while firing", func() {
			m.SetThrusters(true)
			s := m.Advance()
			Expect(s.Throttle).To(Equal(100.0))
			Expect(s.Fuel).To(BeNumerically("~", 99.5, 1e-9))
			Expect(s.Temperature).To(BeNumerically("~", 155, 1e-9))
		})
	})

	Describe("abort", func() {
		BeforeEach(func() {
			for i := 0; i < 10; i++ {
				m.Advance()
			}
		})

		It("forces full throttle immediately", func() {
			m.AbortMission()
			s := m.Snapshot()
			Expect(s.Aborted).To(BeTrue())
			Expect(s.ThrustersEngaged).To(BeTrue())
			Expect(s.Throttle).To(Equal(100.0))
			Expect(s.Status).To(Equal(lander.StatusAborted))

			last := s.Alerts[len(s.Alerts)-1]
			Expect(last.Message).To(Equal("MISSION ABORTED"))
			Expect(last.Critical).To(BeTrue())
		})

		It("freezes the physical state", func() {
			before := m.Snapshot()
			m.AbortMission()
			after := m.Advance()

			Expect(after.Altitude).To(Equal(before.Altitude))
			Expect(after.Velocity).To(Equal(before.Velocity))
			Expect(after.Temperature).To(Equal(before.Temperature))
			Expect(after.Tick).To(Equal(before.Tick))
			Expect(m.Telemetry()).To(HaveLen(10))
		})

		It("produces byte-identical snapshots on every later advance", func() {
			m.AbortMission()
			first, err := msgpack.Marshal(m.Advance())
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 5; i++ {
				next, err := msgpack.Marshal(m.Advance())
				Expect(err).NotTo(HaveOccurred())
				Expect(next).To(Equal(first))
			}
		})
	})

	Describe("landing gear", func() {
		It("deploys only below 100 m and only once", func() {
			Expect(m.DeployGear()).To(BeFalse())
			Expect(m.Snapshot().GearDeployed).To(BeFalse())

			for m.Snapshot().Altitude >= 100 {
				m.Advance()
			}
			Expect(m.DeployGear()).To(BeTrue())
			Expect(m.DeployGear()).To(BeFalse())
			Expect(m.Snapshot().GearDeployed).To(BeTrue())
		})
	})

	Describe("gain retuning", func() {
		It("rejects a bad triple atomically with one critical alert", func() {
			before := m.Snapshot()
			m.SetPIDGains("bad", "0.1", "0.2")
			after := m.Snapshot()

			Expect(after.Controller.Gains).To(Equal(before.Controller.Gains))
			Expect(after.Alerts).To(HaveLen(len(before.Alerts) + 1))
			Expect(after.NewAlerts(before.LastAlertSeq())).To(ConsistOf(
				HaveField("Critical", BeTrue()),
			))
		})
	})

	Describe("alerts", func() {
		It("raises a critical alert on every tick the fuel stays low", func() {
			m.SetThrusters(true)
			for m.Snapshot().Fuel >= lander.FuelCritical {
				m.Advance()
			}
			seq := m.Snapshot().LastAlertSeq()

			s := m.Advance()
			Expect(s.NewAlerts(seq)).To(ContainElement(HaveField("Message", "fuel critical")))
			seq = s.LastAlertSeq()
			s = m.Advance()
			Expect(s.NewAlerts(seq)).To(ContainElement(HaveField("Message", "fuel critical")))
			Expect(s.Status).To(Equal(lander.StatusAlerting))
		})
	})
})
