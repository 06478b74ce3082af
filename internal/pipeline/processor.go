package pipeline

import (
	"fmt"
	"strings"
	"time"

	"transcode-server/internal/logging"
	"transcode-server/internal/mediatypes"
	"transcode-server/internal/memory"
	"transcode-server/internal/metrics"
)

// DefaultLadder is the descending quality ladder tried by the processor.
var DefaultLadder = []float64{0.82, 0.76, 0.70}

// Options configure one Processor. The budget fields are immutable per
// job and enforced throughout.
type Options struct {
	// MaxWallClock is the hard wall-clock budget for one job.
	MaxWallClock time.Duration
	// MaxMemory is the decoded-memory admission ceiling in bytes.
	MaxMemory int64
	// LongEdgeCap bounds the long edge of the output.
	LongEdgeCap int
	// Ladder is the descending quality sequence.
	Ladder []float64
	// MinReductionPct is the compression ratio that makes a rung
	// acceptable on its own.
	MinReductionPct int
	// FastAcceptWindow accepts a rung with a smaller win while total
	// elapsed time is still comfortably under budget.
	FastAcceptWindow time.Duration
	// ProbeBudget bounds dimension probing.
	ProbeBudget time.Duration
}

// DefaultOptions returns the budgets used by the upload flow.
func DefaultOptions() Options {
	return Options{
		MaxWallClock:     1500 * time.Millisecond,
		MaxMemory:        memory.DefaultCeilingBytes,
		LongEdgeCap:      2048,
		Ladder:           DefaultLadder,
		MinReductionPct:  40,
		FastAcceptWindow: 800 * time.Millisecond,
		ProbeBudget:      DefaultProbeBudget,
	}
}

// Request is one unit of bounded processing work.
type Request struct {
	Filename     string
	DeclaredMIME string // caller-supplied, untrusted
	Data         []byte
}

// Processor runs bounded image processing jobs. Each Process call is
// independent and stateless; there is no internal parallelism within a
// job and no external cancellation, only the wall-clock guard.
type Processor struct {
	encoder Encoder
	opts    Options

	// now is the monotonic clock; replaceable in tests.
	now func() time.Time
}

// NewProcessor creates a Processor around the given encoder backend.
func NewProcessor(encoder Encoder, opts Options) *Processor {
	if opts.MaxWallClock <= 0 {
		opts.MaxWallClock = DefaultOptions().MaxWallClock
	}
	if opts.MaxMemory <= 0 {
		opts.MaxMemory = memory.DefaultCeilingBytes
	}
	if opts.LongEdgeCap <= 0 {
		opts.LongEdgeCap = DefaultOptions().LongEdgeCap
	}
	if len(opts.Ladder) == 0 {
		opts.Ladder = DefaultLadder
	}
	if opts.MinReductionPct <= 0 {
		opts.MinReductionPct = DefaultOptions().MinReductionPct
	}
	if opts.FastAcceptWindow <= 0 {
		opts.FastAcceptWindow = DefaultOptions().FastAcceptWindow
	}
	return &Processor{
		encoder: encoder,
		opts:    opts,
		now:     time.Now,
	}
}

// SetClock replaces the processor's monotonic clock. Test hook.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// WithLongEdgeCap returns a processor sharing this one's encoder and
// budgets but with a different long-edge cap. A non-positive or unchanged
// cap returns the receiver.
func (p *Processor) WithLongEdgeCap(cap int) *Processor {
	if cap <= 0 || cap == p.opts.LongEdgeCap {
		return p
	}
	opts := p.opts
	opts.LongEdgeCap = cap
	np := NewProcessor(p.encoder, opts)
	np.now = p.now
	return np
}

// Process runs one job to a terminal Result. It never panics and never
// returns an unclassified failure; the outermost handler here is the
// single point of error normalization.
func (p *Processor) Process(req Request) (result Result) {
	start := p.now()

	defer func() {
		if r := recover(); r != nil {
			logging.Error("pipeline panic processing %s: %v", req.Filename, r)
			result = p.failure(req, start, nil,
				NewError(KindUnknown, fmt.Sprintf("panic: %v", r)))
		}
		metrics.PipelineResults.WithLabelValues(p.outcomeLabel(result)).Inc()
	}()

	if len(req.Data) == 0 {
		return p.failure(req, start, nil, NewError(KindContainerCorrupt, "empty payload"))
	}

	head := req.Data
	if len(head) > mediatypes.SniffWindow {
		head = head[:mediatypes.SniffWindow]
	}

	switch kind := mediatypes.Sniff(head, req.DeclaredMIME); kind {
	case mediatypes.KindJPEGInHEIF:
		// Mislabeled JPEG: relabel and return, zero encode cost.
		return p.passthrough(req, start)
	case mediatypes.KindImage:
		// continue below
	case mediatypes.KindVideo:
		return p.failure(req, start, nil,
			NewError(KindDecodeUnsupported, "video payloads require the server transcoder"))
	default:
		return p.failure(req, start, nil,
			NewError(KindDecodeUnsupported, "unrecognized media payload"))
	}

	// Probing. Falls back to assumed dimensions rather than blocking.
	dims, probed := probeDimensions(req.Data, p.encoder, p.opts.ProbeBudget)
	if !probed {
		logging.Debug("dimension probe fell back to assumed %s for %s", dims, req.Filename)
	}

	// Admission control: reject before any decode work.
	if err := memory.Gate(dims, p.opts.MaxMemory); err != nil {
		return p.failure(req, start, nil, WrapError(KindBudgetExceeded, "admission rejected", err))
	}

	target := mediatypes.Fit(dims, p.opts.LongEdgeCap)

	return p.runLadder(req, start, dims, target)
}

// runLadder walks the quality ladder top-down, guarded by the wall-clock
// budget before every rung. The first acceptable rung wins.
func (p *Processor) runLadder(req Request, start time.Time, dims, target mediatypes.Dimensions) Result {
	originalSize := int64(len(req.Data))
	attempted := make([]float64, 0, len(p.opts.Ladder))

	var lastErr error
	anyArtifact := false

	defer func() {
		metrics.PipelineLadderAttempts.Observe(float64(len(attempted)))
	}()

	for _, quality := range p.opts.Ladder {
		// Wall-clock guard: taken before starting any rung; once the
		// budget is gone no partial rung is started.
		if p.now().Sub(start) >= p.opts.MaxWallClock {
			return p.failure(req, start, attempted,
				NewError(KindTimeout, fmt.Sprintf("wall-clock budget of %s exhausted", p.opts.MaxWallClock)))
		}

		attempted = append(attempted, quality)

		enc, err := p.encoder.Encode(req.Data, target, quality)
		if err != nil {
			// Rung-local failure: advance to the next quality.
			lastErr = err
			logging.Debug("encode at q=%.2f failed for %s: %v", quality, req.Filename, err)
			continue
		}
		anyArtifact = true

		outputSize := int64(len(enc.Data))
		ratio := CompressionRatio(originalSize, outputSize)
		elapsed := p.now().Sub(start)

		if ratio >= p.opts.MinReductionPct || elapsed < p.opts.FastAcceptWindow {
			return Result{
				Success: true,
				Path:    StrategyWebPLocal,
				Output: &Output{
					Name: replaceExtension(req.Filename, ".webp"),
					MIME: "image/webp",
					Data: enc.Data,
				},
				Metrics: Metrics{
					ProcessingTimeMs:        elapsed.Milliseconds(),
					OriginalSizeBytes:       originalSize,
					OutputSizeBytes:         outputSize,
					CompressionRatioPercent: ratio,
				},
				Quality:    quality,
				Attempted:  attempted,
				Dimensions: enc.Dims,
			}
		}
	}

	// Ladder exhausted. If no rung ever produced an artifact, the
	// underlying cause is more useful than the exhaustion itself.
	if !anyArtifact && lastErr != nil {
		return p.failure(req, start, attempted, lastErr)
	}
	return p.failure(req, start, attempted,
		NewError(KindAllLevelsFailed, "no quality level met the acceptance threshold"))
}

// passthrough relabels a fake-HEIC payload as the JPEG it really is.
func (p *Processor) passthrough(req Request, start time.Time) Result {
	size := int64(len(req.Data))
	return Result{
		Success: true,
		Path:    StrategyJPEGPassthrough,
		Output: &Output{
			Name: replaceExtension(req.Filename, ".jpg"),
			MIME: "image/jpeg",
			Data: req.Data,
		},
		Metrics: Metrics{
			ProcessingTimeMs:        p.now().Sub(start).Milliseconds(),
			OriginalSizeBytes:       size,
			OutputSizeBytes:         size,
			CompressionRatioPercent: 0,
		},
	}
}

func (p *Processor) failure(req Request, start time.Time, attempted []float64, err error) Result {
	kind := KindOf(err)
	return Result{
		Success: false,
		Metrics: Metrics{
			ProcessingTimeMs:  p.now().Sub(start).Milliseconds(),
			OriginalSizeBytes: int64(len(req.Data)),
		},
		Attempted: attempted,
		ErrorKind: kind,
		Error:     err.Error(),
	}
}

func (p *Processor) outcomeLabel(r Result) string {
	if r.Success {
		return r.Path
	}
	return string(r.ErrorKind)
}

// replaceExtension swaps the extension of name for newExt (with dot).
func replaceExtension(name, newExt string) string {
	if name == "" {
		return "output" + newExt
	}
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx] + newExt
	}
	return name + newExt
}
