package encoder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"panelcast/internal/config"
	"panelcast/internal/deps"
	"panelcast/internal/logging"
	"panelcast/internal/metrics"
)

// Selection sources.
const (
	SourceOverride = "override"
	SourceDetected = "detected"
	SourceFallback = "fallback"
)

const softwareImpact = "panel clips encode on the CPU"

const probeTimeout = 15 * time.Second

// Selection is the outcome of encoder selection.
type Selection struct {
	Vendor Vendor
	Codec  Codec
	Source string
	Detail string
}

// encoderLister reports whether ffmpeg ships a codec.
type encoderLister func(ctx context.Context, ffmpeg, name string) (bool, error)

// Selector picks a codec once per process.
type Selector struct {
	mode     string
	ffmpeg   string
	detector Detector
	hasCodec encoderLister
	logger   *slog.Logger

	once      sync.Once
	selection Selection
}

// Option customises a Selector.
type Option func(*Selector)

// WithDetector replaces the host detector.
func WithDetector(d Detector) Option {
	return func(s *Selector) { s.detector = d }
}

// NewSelector builds a Selector from configuration.
func NewSelector(cfg *config.Config, logger *slog.Logger, opts ...Option) *Selector {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Selector{
		mode:     cfg.Render.Encoder,
		ffmpeg:   cfg.FFmpegBinary(),
		detector: DefaultDetector(),
		hasCodec: deps.HasEncoder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the codec for this host. Only the first call probes; the
// probe ignores caller cancellation and is bounded by probeTimeout.
func (s *Selector) Select(ctx context.Context) Selection {
	s.once.Do(func() {
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), probeTimeout)
		defer cancel()
		s.selection = s.resolve(probeCtx)
		metrics.SetEncoder(string(s.selection.Codec), string(s.selection.Vendor))
		s.logger.Info("encoder selected", logging.Args(
			logging.String(logging.FieldEventType, "encoder_selected"),
			logging.String("codec", string(s.selection.Codec)),
			logging.String("vendor", string(s.selection.Vendor)),
			logging.String("source", s.selection.Source),
		)...)
	})
	return s.selection
}

func (s *Selector) resolve(ctx context.Context) Selection {
	codec, explicit, err := CodecForMode(s.mode)
	if err != nil {
		logging.WarnWithContext(s.logger, "invalid encoder mode; using software encoder", "encoder_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set render.encoder to auto, nvenc, qsv, or x264"),
			logging.String(logging.FieldImpact, softwareImpact),
		)
		return Selection{Vendor: VendorUnknown, Codec: CodecX264, Source: SourceFallback, Detail: err.Error()}
	}

	sel := Selection{Source: SourceOverride}
	if explicit {
		sel.Codec = codec
		sel.Vendor = vendorForCodec(codec)
	} else {
		vendor, detectErr := s.detector.Detect(ctx)
		if detectErr != nil {
			logging.WarnWithContext(s.logger, "gpu detection failed; using software encoder", "encoder_fallback",
				logging.Error(detectErr),
				logging.String(logging.FieldErrorHint, "check /sys/class/drm permissions or set render.encoder"),
				logging.String(logging.FieldImpact, softwareImpact),
			)
			return Selection{Vendor: VendorUnknown, Codec: CodecX264, Source: SourceFallback, Detail: detectErr.Error()}
		}
		sel = Selection{Vendor: vendor, Codec: CodecFor(vendor), Source: SourceDetected}
	}

	if !sel.Codec.Hardware() {
		return sel
	}
	ok, listErr := s.hasCodec(ctx, s.ffmpeg, string(sel.Codec))
	if listErr != nil || !ok {
		detail := "ffmpeg does not list " + string(sel.Codec)
		if listErr != nil {
			detail = listErr.Error()
		}
		logging.WarnWithContext(s.logger, "hardware encoder unavailable; using software encoder", "encoder_fallback",
			logging.String("codec", string(sel.Codec)),
			logging.String("detail", detail),
			logging.String(logging.FieldErrorHint, "install an ffmpeg build with "+string(sel.Codec)),
			logging.String(logging.FieldImpact, softwareImpact),
		)
		return Selection{Vendor: sel.Vendor, Codec: CodecX264, Source: SourceFallback, Detail: detail}
	}
	return sel
}
