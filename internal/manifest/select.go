package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrNoVideoData is returned when the manifest carries no video variants.
	ErrNoVideoData = errors.New("no video data in manifest")
	// ErrNoAudioData is returned when the manifest carries no audio variants.
	ErrNoAudioData = errors.New("no audio data in manifest")
	// ErrNoMatch is returned when no variant satisfies the selection rule.
	ErrNoMatch = errors.New("no matching variant")
)

// ValidHeights are the heights a caller may request explicitly.
var ValidHeights = []int{240, 360, 540, 720, 1080}

// VideoPolicy picks a video variant. When Max is set the largest area wins
// and Height is ignored; otherwise the first variant of exactly Height is used.
type VideoPolicy struct {
	Max    bool
	Height int
}

func (p VideoPolicy) String() string {
	if p.Max {
		return "max"
	}
	return fmt.Sprintf("%dp", p.Height)
}

// IsValidHeight reports whether h is one of ValidHeights.
func IsValidHeight(h int) bool {
	for _, v := range ValidHeights {
		if v == h {
			return true
		}
	}
	return false
}

// SelectVideo returns the first segment of the video variant chosen by policy.
// Variants without segments are never selected.
func SelectVideo(m *Manifest, policy VideoPolicy) (Segment, error) {
	if m == nil || len(m.Video) == 0 {
		return Segment{}, ErrNoVideoData
	}

	if policy.Max {
		best := -1
		for i, v := range m.Video {
			if !v.usable() {
				continue
			}
			// strictly greater keeps the first of equal areas
			if best < 0 || v.area() > m.Video[best].area() {
				best = i
			}
		}
		if best < 0 {
			return Segment{}, fmt.Errorf("max resolution: %w", ErrNoMatch)
		}
		return m.Video[best].Segments[0], nil
	}

	if policy.Height <= 0 {
		return Segment{}, fmt.Errorf("no resolution requested: %w", ErrNoMatch)
	}
	for _, v := range m.Video {
		if v.Height == policy.Height && v.usable() {
			return v.Segments[0], nil
		}
	}
	return Segment{}, fmt.Errorf("height %d: %w", policy.Height, ErrNoMatch)
}

// SelectAudio returns the first segment of the first AAC-LC audio variant.
// No fallback codec is attempted.
func SelectAudio(m *Manifest) (Segment, error) {
	if m == nil || len(m.Audio) == 0 {
		return Segment{}, ErrNoAudioData
	}
	for _, a := range m.Audio {
		if a.Codecs == AcceptedAudioCodec && a.usable() {
			return a.Segments[0], nil
		}
	}
	return Segment{}, fmt.Errorf("codec %s: %w", AcceptedAudioCodec, ErrNoMatch)
}

// IsUnavailable reports whether err means the requested stream kind is
// simply not offered by the manifest.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNoVideoData) || errors.Is(err, ErrNoAudioData) || errors.Is(err, ErrNoMatch)
}
