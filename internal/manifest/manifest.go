// Package manifest decodes audio/video manifests and resolves the variant
// segments that a download job fetches.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
)

// AcceptedAudioCodec is the only audio codec identifier a job will select (AAC-LC).
const AcceptedAudioCodec = "mp4a.40.2"

// Manifest lists the video and audio variants available for one piece of content.
type Manifest struct {
	Video []VideoVariant `json:"video"`
	Audio []AudioVariant `json:"audio"`
}

// VideoVariant is one video encoding. Width*Height ranks variants.
type VideoVariant struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Segments []Segment `json:"segments"`
}

// AudioVariant is one audio encoding.
type AudioVariant struct {
	Codecs   string    `json:"codecs"`
	Segments []Segment `json:"segments"`
}

// Segment is a manifest-relative, range-qualified media reference.
type Segment struct {
	URL string `json:"url"`
}

func (v VideoVariant) area() int {
	return v.Width * v.Height
}

func (v VideoVariant) usable() bool {
	return len(v.Segments) > 0 && v.Segments[0].URL != ""
}

func (a AudioVariant) usable() bool {
	return len(a.Segments) > 0 && a.Segments[0].URL != ""
}

// ParseError reports a manifest body that could not be decoded. It is kept
// apart from the selection errors so that callers can tell "malformed" from
// "stream kind unavailable".
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed manifest: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Decode reads a JSON manifest from r.
func Decode(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &m, nil
}
