package hk_test

import (
	"sync/atomic"
	"time"

	"github.com/aisreactor/reactor/hk"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Housekeeper", func() {
	BeforeEach(func() {
		hk.TestInit()
		go hk.DefaultHK.Run()
		hk.WaitStarted()
	})

	It("should register the callback and fire it immediately", func() {
		fired := false
		hk.Reg("", func() time.Duration {
			fired = true
			return time.Second
		})

		time.Sleep(20 * time.Millisecond)
		Expect(fired).To(BeTrue())
		fired = false

		time.Sleep(500 * time.Millisecond)
		Expect(fired).To(BeFalse())

		time.Sleep(600 * time.Millisecond)
		Expect(fired).To(BeTrue())
	})

	It("should honor an initial delay", func() {
		fired := false
		hk.Reg("", func() time.Duration {
			fired = true
			return time.Second
		}, time.Second)

		time.Sleep(500 * time.Millisecond)
		Expect(fired).To(BeFalse())

		time.Sleep(600 * time.Millisecond)
		Expect(fired).To(BeTrue())
	})

	It("should unregister a callback", func() {
		var fired int32
		hk.Reg("bar", func() time.Duration {
			atomic.StoreInt32(&fired, 1)
			return 400 * time.Millisecond
		}, 400*time.Millisecond)

		time.Sleep(500 * time.Millisecond)
		Expect(atomic.LoadInt32(&fired)).To(BeEquivalentTo(1))

		atomic.StoreInt32(&fired, 0)
		hk.Unreg("bar")

		time.Sleep(time.Second)
		Expect(atomic.LoadInt32(&fired)).To(BeEquivalentTo(0))
	})

	It("should run multiple callbacks independently", func() {
		fired := make([]int32, 2)
		hk.Reg("foo", func() time.Duration {
			atomic.StoreInt32(&fired[0], 1)
			return 2 * time.Second
		})
		hk.Reg("baz", func() time.Duration {
			atomic.StoreInt32(&fired[1], 1)
			return time.Second + 500*time.Millisecond
		})

		time.Sleep(20 * time.Millisecond)
		Expect(atomic.LoadInt32(&fired[0])).To(BeEquivalentTo(1))
		Expect(atomic.LoadInt32(&fired[1])).To(BeEquivalentTo(1))
	})
})
