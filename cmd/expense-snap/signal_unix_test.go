//go:build !windows

package main

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expense-snap/internal/trigger"
)

var _ = Describe("platformTriggers", func() {
	It("listens for a signal", func() {
		sources := platformTriggers()
		Expect(sources).To(HaveKey("signal"))
		Expect(sources["signal"]).To(BeAssignableToTypeOf(&trigger.Signal{}))
	})
})
