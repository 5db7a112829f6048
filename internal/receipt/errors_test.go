package receipt

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expense-snap/internal/capture"
	"github.com/zombor/expense-snap/internal/extraction"
	"github.com/zombor/expense-snap/internal/retry"
	"github.com/zombor/expense-snap/internal/scanning"
)

var _ = Describe("Classify", func() {
	DescribeTable("maps pipeline errors to kinds",
		func(err error, want ErrorKind) {
			Expect(Classify(err)).To(Equal(want))
		},
		Entry("nil", nil, KindUnknown),
		Entry("cancelled", ErrCancelled, KindCancelled),
		Entry("context cancelled", fmt.Errorf("waiting to retry: %w", context.Canceled), KindCancelled),
		Entry("permission denied", fmt.Errorf("capturing screen: %w", capture.ErrPermissionDenied), KindPermissionDenied),
		Entry("capture failed", capture.ErrCaptureFailed, KindCaptureFailed),
		Entry("no text", scanning.ErrNoTextFound, KindNoTextFound),
		Entry("low confidence", fmt.Errorf("%w: 0.20", scanning.ErrLowConfidence), KindLowConfidence),
		Entry("no amount", extraction.ErrNoValidAmountFound, KindNoValidAmountFound),
		Entry("offline", fmt.Errorf("%w: dns", scanning.ErrEngineOffline), KindEngineOffline),
		Entry("rejected by engine", fmt.Errorf("recognizing text: %w: status 404", scanning.ErrRecognitionFailed), KindRecognitionFailed),
		Entry("malformed", fmt.Errorf("%w: not json", retry.ErrMalformedData), KindMalformedData),
		Entry("transient", retry.ErrTransient, KindTransientNetwork),
		Entry("connection reset", syscall.ECONNRESET, KindTransientNetwork),
		Entry("exhausted retries", &retry.MaxRetriesError{Attempts: 4, Last: retry.ErrTransient}, KindMaxRetriesExceeded),
		Entry("anything else", errors.New("boom"), KindUnknown),
	)

	It("gives every kind a name and a message", func() {
		for kind := KindUnknown; kind <= KindRecognitionFailed; kind++ {
			Expect(kind.String()).NotTo(BeEmpty())
			Expect(kind.Message()).NotTo(BeEmpty())
		}
	})

	It("falls back to unknown for out-of-range kinds", func() {
		Expect(ErrorKind(99).String()).To(Equal("unknown"))
		Expect(ErrorKind(99).Message()).To(Equal(KindUnknown.Message()))
	})
})

var _ = Describe("stage errors", func() {
	It("treats any capture error as a capture failure", func() {
		err := captureError(errors.New("display driver went away"))
		Expect(Classify(err)).To(Equal(KindCaptureFailed))
		Expect(err).To(MatchError(ContainSubstring("display driver went away")))
	})

	It("keeps permission errors distinct", func() {
		Expect(Classify(captureError(capture.ErrPermissionDenied))).To(Equal(KindPermissionDenied))
	})

	It("gives unexplained engine errors an actionable kind", func() {
		err := recognitionError(errors.New("ollama API error (status 404): model not found"))
		Expect(Classify(err)).To(Equal(KindRecognitionFailed))
		Expect(Classify(err).Message()).To(ContainSubstring("API key"))
	})

	It("leaves known recognition kinds alone", func() {
		Expect(Classify(recognitionError(scanning.ErrEngineOffline))).To(Equal(KindEngineOffline))
		Expect(Classify(recognitionError(&retry.MaxRetriesError{Attempts: 4, Last: retry.ErrTransient}))).To(Equal(KindMaxRetriesExceeded))
	})
})
