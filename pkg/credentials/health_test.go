package credentials_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/puterbridge/pkg/credentials"
)

var _ = Describe("BackoffHealth", func() {
	var (
		now    time.Time
		health *credentials.BackoffHealth
	)

	BeforeEach(func() {
		now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		health = credentials.NewBackoffHealth(credentials.BackoffConfig{
			InitialInterval: time.Second,
			MaxInterval:     4 * time.Second,
			Multiplier:      2,
		})
	})

	It("treats unknown credentials as healthy", func() {
		Expect(health.Healthy("x", now)).To(BeTrue())
		_, benched := health.BenchedUntil("x")
		Expect(benched).To(BeFalse())
	})

	It("grows the window on consecutive failures up to the max", func() {
		expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
		for _, d := range expected {
			health.ReportFailure("x", now)
			until, benched := health.BenchedUntil("x")
			Expect(benched).To(BeTrue())
			Expect(until).To(Equal(now.Add(d)))
		}
	})

	It("resets the window after a success", func() {
		health.ReportFailure("x", now)
		health.ReportFailure("x", now)
		health.ReportSuccess("x")
		health.ReportFailure("x", now)

		until, _ := health.BenchedUntil("x")
		Expect(until).To(Equal(now.Add(time.Second)))
	})

	It("spreads the window by the configured jitter", func() {
		jittered := credentials.NewBackoffHealth(credentials.BackoffConfig{
			InitialInterval: 10 * time.Second,
			MaxInterval:     time.Minute,
			Multiplier:      2,
			Jitter:          0.5,
		})

		windows := map[time.Duration]bool{}
		for i := range 50 {
			id := fmt.Sprintf("acct-%d", i)
			jittered.ReportFailure(id, now)
			until, benched := jittered.BenchedUntil(id)
			Expect(benched).To(BeTrue())

			wait := until.Sub(now)
			Expect(wait).To(BeNumerically(">=", 5*time.Second))
			Expect(wait).To(BeNumerically("<=", 15*time.Second))
			windows[wait] = true
		}
		Expect(len(windows)).To(BeNumerically(">", 1))
	})
})

var _ = Describe("NopHealth", func() {
	It("is always healthy", func() {
		h := credentials.NopHealth{}
		h.ReportFailure("x", time.Now())
		Expect(h.Healthy("x", time.Now())).To(BeTrue())
	})
})
