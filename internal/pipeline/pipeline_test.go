package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/lavarand/internal/capture"
	"github.com/san-kum/lavarand/internal/entropy"
	"github.com/san-kum/lavarand/internal/history"
	"github.com/san-kum/lavarand/internal/keygen"
	"github.com/san-kum/lavarand/internal/physics"
	"github.com/san-kum/lavarand/internal/pipeline"
	"github.com/san-kum/lavarand/internal/render"
)

type staticSource struct {
	pix   []byte
	err   error
	calls atomic.Int32
}

func (s *staticSource) Snapshot() (capture.FrameSnapshot, error) {
	s.calls.Add(1)
	if s.err != nil {
		return capture.FrameSnapshot{}, s.err
	}
	return capture.FrameSnapshot{Pix: s.pix, Width: 1, Height: len(s.pix) / 4, Source: "static"}, nil
}

type countingDigester struct {
	inner entropy.Digester
	calls atomic.Int32
	err   error
}

func (c *countingDigester) Digest(ctx context.Context, snapshot []byte, ts time.Time) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return c.inner.Digest(ctx, snapshot, ts)
}

var fixed = time.UnixMilli(1700000000000)

var _ = Describe("DeriveKey", func() {
	var engine *entropy.Engine

	BeforeEach(func() {
		var err error
		engine, err = entropy.NewEngine("sha256")
		Expect(err).NotTo(HaveOccurred())
	})

	It("digests the snapshot with the millisecond nonce", func() {
		d, err := pipeline.DeriveKey(context.Background(), engine, []byte("abc"), fixed, keygen.Request{Kind: keygen.Hex})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.DigestHex).To(Equal("45f5345bacf0f970b877241b283d6c16f2818aaad899d20c856e962a2a03df5f"))
		Expect(d.Output).To(Equal(d.DigestHex))
	})

	It("formats an all-black frame as a UUID", func() {
		black := []byte{0, 0, 0, 255, 0, 0, 0, 255, 0, 0, 0, 255, 0, 0, 0, 255}
		d, err := pipeline.DeriveKey(context.Background(), engine, black, fixed, keygen.Request{Kind: keygen.UUID})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.DigestHex).To(Equal("e77ddc6dcb31c54ccb56db7b492313c64be87eee4135d686965db6479ec6016c"))
		Expect(d.Output).To(MatchRegexp(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`))
	})

	It("rejects an inverted integer range", func() {
		_, err := pipeline.DeriveKey(context.Background(), engine, []byte("abc"), fixed,
			keygen.Request{Kind: keygen.Int, Min: 5, Max: 4})
		Expect(err).To(MatchError(keygen.ErrInvalidRange))
	})
})

var _ = Describe("Pipeline", func() {
	var (
		log      *history.Log
		digester *countingDigester
		p        *pipeline.Pipeline
	)

	BeforeEach(func() {
		engine, err := entropy.NewEngine("")
		Expect(err).NotTo(HaveOccurred())
		log = history.New(history.DefaultCapacity)
		digester = &countingDigester{inner: engine}
		p = pipeline.New(digester, log,
			pipeline.WithClock(func() time.Time { return fixed }),
			pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	})

	Context("when the source produces a frame", func() {
		It("records the derivation at the front of the log", func() {
			rec, err := p.Derive(context.Background(), &staticSource{pix: []byte("abc")}, keygen.Request{Kind: keygen.Hex})
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.Key).To(Equal("45f5345bacf0f970b877241b283d6c16f2818aaad899d20c856e962a2a03df5f"))
			Expect(rec.SeedPreview).To(Equal("45f5345bac..."))
			Expect(rec.Kind).To(Equal(keygen.Hex))
			Expect(rec.Timestamp).To(Equal(fixed))

			id, err := uuid.Parse(rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(id.Version()).To(Equal(uuid.Version(7)))

			latest, ok := log.Latest()
			Expect(ok).To(BeTrue())
			Expect(latest).To(Equal(rec))
		})

		It("produces bounded integers in the default range", func() {
			rec, err := p.Derive(context.Background(), &staticSource{pix: []byte("abc")}, keygen.DefaultRequest(keygen.Int))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Key).To(MatchRegexp(`^\d+$`))
		})

		It("keeps only the ten newest records", func() {
			src := &staticSource{pix: []byte("abc")}
			for i := 0; i < 15; i++ {
				_, err := p.Derive(context.Background(), src, keygen.Request{Kind: keygen.UUID})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(log.Len()).To(Equal(10))
		})

		It("allows concurrent derivations", func() {
			src := &staticSource{pix: []byte("abc")}
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := p.Derive(context.Background(), src, keygen.Request{Kind: keygen.Hex})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()
			Expect(log.Len()).To(Equal(8))
		})
	})

	Context("when the source is unavailable", func() {
		It("computes no digest and records nothing", func() {
			src := &staticSource{err: fmt.Errorf("%w: not sized", capture.ErrSourceUnavailable)}
			_, err := p.Derive(context.Background(), src, keygen.Request{Kind: keygen.Hex})

			Expect(err).To(MatchError(capture.ErrSourceUnavailable))
			Expect(src.calls.Load()).To(Equal(int32(1)))
			Expect(digester.calls.Load()).To(BeZero())
			Expect(log.Len()).To(BeZero())
		})

		It("treats an unsized simulated surface as unavailable", func() {
			surface := render.NewSurface(physics.NewLamp(physics.NewRNG(1)))
			_, err := p.Derive(context.Background(), capture.NewSimulated(surface), keygen.Request{Kind: keygen.Hex})

			Expect(errors.Is(err, capture.ErrSourceUnavailable)).To(BeTrue())
			Expect(digester.calls.Load()).To(BeZero())
		})

		It("treats an idle camera as unavailable", func() {
			cam := capture.NewCamera(capture.NewImageDevice(GinkgoT().TempDir()))
			_, err := p.Derive(context.Background(), cam, keygen.Request{Kind: keygen.UUID})

			Expect(err).To(MatchError(capture.ErrSourceUnavailable))
			Expect(log.Len()).To(BeZero())
		})
	})

	Context("when the digest fails", func() {
		It("surfaces an unsupported algorithm without recording", func() {
			digester.err = entropy.ErrDigestUnsupported
			_, err := p.Derive(context.Background(), &staticSource{pix: []byte("abc")}, keygen.Request{Kind: keygen.Hex})

			Expect(err).To(MatchError(entropy.ErrDigestUnsupported))
			Expect(log.Len()).To(BeZero())
		})

		It("returns the context error when cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := p.Derive(ctx, &staticSource{pix: []byte("abc")}, keygen.Request{Kind: keygen.Hex})

			Expect(err).To(MatchError(context.Canceled))
			Expect(log.Len()).To(BeZero())
		})
	})

	Context("with an invalid request", func() {
		It("does not touch the source", func() {
			src := &staticSource{pix: []byte("abc")}
			_, err := p.Derive(context.Background(), src, keygen.Request{Kind: keygen.Int, Min: 9, Max: 1})

			Expect(err).To(MatchError(keygen.ErrInvalidRange))
			Expect(src.calls.Load()).To(BeZero())
		})
	})

	Context("with a live surface", func() {
		It("derives different keys as the lamp moves", func() {
			surface := render.NewSurface(physics.NewLamp(physics.NewRNG(3)))
			Expect(surface.Resize(64, 48)).To(Succeed())
			src := capture.NewSimulated(surface)

			first, err := p.Derive(context.Background(), src, keygen.Request{Kind: keygen.Hex})
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 30; i++ {
				surface.Tick()
			}
			second, err := p.Derive(context.Background(), src, keygen.Request{Kind: keygen.Hex})
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Key).NotTo(Equal(first.Key))
			Expect(log.Entries()[0].ID).To(Equal(second.ID))
		})
	})
})

var _ = Describe("Preview", func() {
	It("truncates long digests", func() {
		Expect(pipeline.Preview("0123456789abcdef")).To(Equal("0123456789..."))
	})
	It("leaves short strings alone", func() {
		Expect(pipeline.Preview("abc")).To(Equal("abc"))
	})
})
