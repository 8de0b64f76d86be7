// Package resample defines the sample-rate converter contract the Audio
// Bridge calls into on host-to-device ring underflow, along with a
// concrete implementation backed by
// github.com/tphakala/go-audio-resampler. The converter itself is
// treated as swappable: the Audio Bridge only ever sees [Converter].
package resample

import (
	"fmt"

	"github.com/tphakala/go-audio-resampler"
)

// Converter stretches src (available_frames frames of one channel) to
// exactly outLen frames, implementing the "simple" sample-rate
// conversion the Audio Bridge falls back to on underflow. Implementations
// are not required to be sample-accurate; the caller logs and continues
// when Convert returns fewer than outLen frames.
type Converter interface {
	Convert(src []float32, outLen int) ([]float32, error)
}

// Soxr is a [Converter] backed by the pure-Go libsoxr port. Since the
// Audio Bridge recomputes its ratio on every underflow (src_ratio =
// F / available_frames), Soxr treats every call as a fresh one-shot
// conversion rather than holding streaming filter state across calls.
type Soxr struct {
	Quality resampler.Quality
}

// NewSoxr returns a Converter using the [resampler.QualityLow] preset,
// the "simple" default the Audio Bridge is specified against: underflow
// is rare, so cheap conversion is preferable to spending CPU on a case
// that shouldn't be common. Set Quality on the result to use another.
func NewSoxr() *Soxr {
	return &Soxr{Quality: resampler.QualityLow}
}

// Convert implements [Converter]. It maps the available_frames -> outLen
// stretch onto a synthetic sample-rate pair of the same ratio, since the
// underlying library resamples between rates rather than taking a ratio
// directly.
func (s *Soxr) Convert(src []float32, outLen int) ([]float32, error) {
	if len(src) == 0 || outLen <= 0 {
		return nil, fmt.Errorf("resample: invalid conversion %d -> %d frames", len(src), outLen)
	}
	inRate := len(src)
	outRate := outLen
	out, err := resampler.ResampleMonoFloat32(src, inRate, outRate, s.Quality)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	return out, nil
}

var _ Converter = (*Soxr)(nil)
