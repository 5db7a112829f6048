package receipt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/expense-snap/internal/capture"
	"github.com/zombor/expense-snap/internal/category"
	"github.com/zombor/expense-snap/internal/extraction"
	"github.com/zombor/expense-snap/internal/receipt"
	"github.com/zombor/expense-snap/internal/retry"
	"github.com/zombor/expense-snap/internal/scanning"
)

// scriptedEngine answers every image with the same text
type scriptedEngine struct {
	text []scanning.RawText
}

func (e *scriptedEngine) RecognizeText(ctx context.Context, img image.Image) ([]scanning.RawText, error) {
	return e.text, nil
}

func (e *scriptedEngine) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		tempDir      string
		db           *receipt.BoltDB
		store        *receipt.LocalStorage
		orchestrator *receipt.Orchestrator
		ghServer     *ghttp.Server
	)

	getJSON := func(path string, v any) {
		resp, err := http.Get(ghServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	post := func(path string, body string) *http.Response {
		resp, err := http.Post(ghServer.URL()+path, "application/json", bytes.NewBufferString(body))
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()

		screenshot := image.NewRGBA(image.Rect(0, 0, 320, 200))
		for x := 0; x < 320; x++ {
			screenshot.Set(x, 100, color.Black)
		}
		var buf bytes.Buffer
		Expect(png.Encode(&buf, screenshot)).To(Succeed())
		screenPath := filepath.Join(tempDir, "screen.png")
		Expect(os.WriteFile(screenPath, buf.Bytes(), 0644)).To(Succeed())

		var err error
		db, err = receipt.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "captures"))
		Expect(err).NotTo(HaveOccurred())

		engine := &scriptedEngine{text: []scanning.RawText{
			{Text: "星巴克", Confidence: 0.95},
			{Text: "¥35.00", Confidence: 0.9},
			{Text: "2024-01-15", Confidence: 0.9},
		}}

		service := receipt.NewService(db, store)
		orchestrator = receipt.NewOrchestrator(
			capture.NewFile(screenPath),
			scanning.NewRecognizer(engine, scanning.DefaultOptions()),
			extraction.NewExtractor(time.UTC),
			category.NewScorer(nil),
			receipt.Config{
				ConfirmWindow: 10 * time.Millisecond,
				Sink:          service,
				Retry:         &retry.Policy{MaxRetries: 1, Delays: []time.Duration{time.Millisecond}},
			},
		)
		server := receipt.NewServer(orchestrator, service, receipt.BasicAuth{})

		ghServer = ghttp.NewServer()
		ghServer.RouteToHandler("GET", "/api/state", server.ServeHTTP)
		ghServer.RouteToHandler("GET", "/api/receipts", server.ServeHTTP)
		ghServer.RouteToHandler("POST", "/api/trigger", server.ServeHTTP)
		ghServer.RouteToHandler("POST", "/api/confirm", server.ServeHTTP)
	})

	AfterEach(func() {
		ghServer.Close()
		orchestrator.Close()
		db.Close()
	})

	It("captures, recognizes, confirms and stores a coffee purchase", func() {
		resp := post("/api/trigger", "")
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

		var state struct {
			State  string          `json:"state"`
			Result *receipt.Result `json:"result"`
		}
		Eventually(func() string {
			getJSON("/api/state", &state)
			return state.State
		}).Should(Equal("success"))

		Expect(state.Result.Amounts).To(Equal([]float64{35}))
		Expect(state.Result.MerchantName).To(Equal("星巴克"))
		Expect(state.Result.SuggestedCategory).To(Equal(category.Food))
		Expect(state.Result.CategoryConfidence).To(BeNumerically(">", 0.5))

		resp = post("/api/confirm", `{}`)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated), string(body))

		var receipts []receipt.Receipt
		getJSON("/api/receipts", &receipts)
		Expect(receipts).To(HaveLen(1))
		Expect(receipts[0].Amount).To(Equal(3500))
		Expect(receipts[0].Category).To(Equal(category.Food))
		Expect(receipts[0].Date.Format("2006-01-02")).To(Equal("2024-01-15"))

		data, err := store.Get(receipts[0].Filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = png.Decode(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())

		getJSON("/api/state", &state)
		Expect(state.State).To(Equal("idle"))
	})
})
