package tracker

import (
	"context"
	"image"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/minimap-tracker/internal/geo"
	"github.com/GriffinCanCode/minimap-tracker/internal/imaging"
	"github.com/GriffinCanCode/minimap-tracker/internal/metrics"
	"github.com/GriffinCanCode/minimap-tracker/internal/ocr"
	"github.com/GriffinCanCode/minimap-tracker/internal/position"
	"github.com/GriffinCanCode/minimap-tracker/internal/screen"
	"github.com/GriffinCanCode/minimap-tracker/internal/syncx"
	"github.com/GriffinCanCode/minimap-tracker/internal/trace"
)

// Options tune a Pipeline.
type Options struct {
	// Upscale enlarges each OCR input by this factor; <= 1 disables it.
	Upscale int
	// HueTier adds a yellow-hue threshold pass after the range pass.
	HueTier      bool
	HueTolerance float64
	// SkipUnchanged ends the cycle early when the frame matches the last
	// frame that produced the current position.
	SkipUnchanged bool
	Calibration   geo.Calibration
	Now           func() time.Time
}

// DefaultOptions returns the stock three-tier pipeline.
func DefaultOptions() Options {
	return Options{
		Upscale:      1,
		HueTolerance: imaging.DefaultHueTolerance,
		Calibration:  geo.DefaultCalibration(),
		Now:          time.Now,
	}
}

type tier struct {
	name string
	// fresh restarts from a copy of the captured frame instead of refining
	// the previous tier's image.
	fresh  bool
	filter imaging.Filter
}

// Pipeline runs single cycles. It owns the validator state and must be
// driven from one goroutine.
type Pipeline struct {
	capturer   screen.Capturer
	recognizer ocr.Recognizer
	projector  *geo.Projector
	opts       Options
	tiers      []tier

	state    position.TrackerState
	heading  geo.HeadingTracker
	last     position.Candidate
	hasLast  bool
	lastHash *goimagehash.ImageHash

	preview *syncx.RWGuard[[]byte]
}

// NewPipeline wires a pipeline.
func NewPipeline(c screen.Capturer, r ocr.Recognizer, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Calibration == (geo.Calibration{}) {
		opts.Calibration = geo.DefaultCalibration()
	}
	tiers := []tier{
		{name: TierOriginal, fresh: true},
		{name: TierColor, filter: imaging.ColorFilter(imaging.TextColor, imaging.TextColorMaxDistance)},
		{name: TierRange, fresh: true, filter: imaging.RangeFilter(imaging.TextRangeLow, imaging.TextRangeHigh)},
	}
	if opts.HueTier {
		tol := opts.HueTolerance
		if tol <= 0 {
			tol = imaging.DefaultHueTolerance
		}
		tiers = append(tiers, tier{name: TierHue, fresh: true, filter: imaging.HueFilter(imaging.YellowHue, tol)})
	}
	return &Pipeline{
		capturer:   c,
		recognizer: r,
		projector:  geo.NewProjector(opts.Calibration),
		opts:       opts,
		tiers:      tiers,
		state:      position.NewTrackerState(),
		preview:    syncx.NewGuard[[]byte](nil),
	}
}

// State returns the validator state.
func (p *Pipeline) State() position.TrackerState { return p.state }

// Preview returns the PNG of the image that produced the latest fix.
func (p *Pipeline) Preview() []byte {
	return p.preview.Get()
}

// Reset starts a new tracking session.
func (p *Pipeline) Reset() {
	p.state = position.NewTrackerState()
	p.heading.Reset()
	p.hasLast = false
	p.lastHash = nil
}

// Cycle performs one capture and returns what happened.
func (p *Pipeline) Cycle(ctx context.Context) Report {
	ctx, span := trace.StartSpan(ctx, "capture_cycle")
	start := time.Now()
	rep := p.cycle(ctx)
	span.SetAttr("outcome", string(rep.Outcome))
	span.EndAndLog(ctx)
	metrics.ObserveCycle(string(rep.Outcome), start)
	metrics.InvalidStreak.Set(float64(p.state.InvalidStreak))
	return rep
}

func (p *Pipeline) cycle(ctx context.Context) Report {
	log := trace.Logger(ctx)

	frame, err := p.capturer.Capture(ctx)
	if err != nil {
		log.Debug("capture failed", "error", err)
		return Report{Outcome: OutcomeAcquisitionFailed, Err: err}
	}

	hash := p.frameHash(frame)
	if p.opts.SkipUnchanged && p.unchanged(hash) {
		return Report{Outcome: OutcomeUnchanged}
	}

	cand, tierName, text, img, ok := p.recognize(ctx, frame)
	if !ok {
		p.lastHash = nil
		return Report{Outcome: OutcomeNoCandidate, Text: text}
	}
	rep := Report{Tier: tierName, Text: text, Candidate: cand}

	if p.hasLast && cand == p.last {
		p.lastHash = hash
		rep.Outcome = OutcomeDuplicate
		return rep
	}

	now := p.opts.Now()
	res, next := position.Validate(cand, p.state, now)
	p.state = next
	rep.Outcome = outcomeOf(res.Verdict)
	if !res.OK() {
		p.lastHash = nil
		log.Debug("candidate rejected", "verdict", res.Verdict.String(), "x", cand.X, "y", cand.Y, "streak", p.state.InvalidStreak)
		return rep
	}

	p.last, p.hasLast = cand, true
	p.lastHash = hash

	heading := p.heading.Update(res.Position)
	ll := p.projector.Project(res.Position)
	fix := &Fix{
		X:              res.Position.X,
		Y:              res.Position.Y,
		Lat:            ll.Lat,
		Lng:            ll.Lng,
		Heading:        heading.Degrees,
		HeadingRadians: heading.Radians,
		At:             now,
	}
	if tc, ok := trace.FromContext(ctx); ok {
		fix.TraceID = tc.TraceID
	}
	rep.Fix = fix
	p.setPreview(img)
	log.Debug("position accepted", "x", fix.X, "y", fix.Y, "lat", fix.Lat, "lng", fix.Lng, "tier", tierName)
	return rep
}

// recognize walks the tiers until one yields a candidate. It returns the
// image that was sent to OCR for the successful tier.
func (p *Pipeline) recognize(ctx context.Context, frame *image.RGBA) (position.Candidate, string, string, *image.RGBA, bool) {
	var (
		working *image.RGBA
		text    string
	)
	for _, t := range p.tiers {
		if t.fresh || working == nil {
			working = imaging.Clone(frame)
		}
		if t.filter != nil {
			t.filter(working)
		}

		start := time.Now()
		var err error
		text, err = p.recognizer.Recognize(ctx, p.ocrInput(working))
		if err != nil {
			trace.Logger(ctx).Debug("ocr failed", "tier", t.name, "error", err)
			metrics.ObserveOCR(t.name, "error", start)
			continue
		}
		if cand, ok := position.Parse(text); ok {
			metrics.ObserveOCR(t.name, "candidate", start)
			return cand, t.name, text, working, true
		}
		metrics.ObserveOCR(t.name, "no_candidate", start)
	}
	return position.Candidate{}, "", text, nil, false
}

func (p *Pipeline) ocrInput(img *image.RGBA) image.Image {
	if p.opts.Upscale > 1 {
		return imaging.Upscale(img, p.opts.Upscale)
	}
	return img
}

func (p *Pipeline) frameHash(frame *image.RGBA) *goimagehash.ImageHash {
	if !p.opts.SkipUnchanged {
		return nil
	}
	h, err := goimagehash.DifferenceHash(frame)
	if err != nil {
		return nil
	}
	return h
}

// unchanged reports whether hash matches the frame behind the current
// position. Only frames that produced an accepted or duplicate candidate
// are remembered, so rejected readings keep feeding the validator.
func (p *Pipeline) unchanged(hash *goimagehash.ImageHash) bool {
	if hash == nil || p.lastHash == nil {
		return false
	}
	dist, err := p.lastHash.Distance(hash)
	return err == nil && dist <= MaxFrameHashDistance
}

func (p *Pipeline) setPreview(img *image.RGBA) {
	if img == nil {
		return
	}
	data, err := ocr.EncodePNG(img)
	if err != nil {
		return
	}
	p.preview.Set(data)
}
