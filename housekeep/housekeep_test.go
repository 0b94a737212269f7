package housekeep_test

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ugv-zrf/zrf/housekeep"
)

var _ = Describe("Housekeeper", func() {
	It("runs a registered job repeatedly on its interval", func() {
		hk := housekeep.New(nil)
		hk.Run()
		hk.WaitStarted()
		defer hk.Stop()

		var calls int32
		hk.Register(housekeep.Job{
			Name:     "tick",
			Interval: 10 * time.Millisecond,
			F: func() time.Duration {
				atomic.AddInt32(&calls, 1)
				return 10 * time.Millisecond
			},
		})

		Eventually(func() int32 {
			return atomic.LoadInt32(&calls)
		}, time.Second, 5*time.Millisecond).Should(BeNumerically(">=", 3))
	})

	It("isolates a panicking job from the rest of the schedule", func() {
		hk := housekeep.New(nil)
		hk.Run()
		hk.WaitStarted()
		defer hk.Stop()

		var survivorCalls int32
		hk.Register(housekeep.Job{
			Name:     "panicker",
			Interval: 10 * time.Millisecond,
			F: func() time.Duration {
				panic("boom")
			},
		})
		hk.Register(housekeep.Job{
			Name:     "survivor",
			Interval: 10 * time.Millisecond,
			F: func() time.Duration {
				atomic.AddInt32(&survivorCalls, 1)
				return 10 * time.Millisecond
			},
		})

		Eventually(func() int32 {
			return atomic.LoadInt32(&survivorCalls)
		}, time.Second, 5*time.Millisecond).Should(BeNumerically(">=", 2))
	})
})
