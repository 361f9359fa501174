package downloader

import (
	"path/filepath"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
)

// sourceFrameDescription names the user-defined frame holding the origin.
const sourceFrameDescription = "source"

// embedAudioTags writes ID3v2 tags into an MP3 output. Tagging is best
// effort; failures are logged and never fail the job.
func embedAudioTags(outputPath, title, source string, logger Logger) {
	if outputPath == "" || !strings.EqualFold(filepath.Ext(outputPath), ".mp3") {
		return
	}
	if err := embedID3Tags(outputPath, title, source); err != nil && logger != nil {
		logger.Log(LogWarn, "metadata tag embedding failed", "path", outputPath, "error", err)
	}
}

func embedID3Tags(outputPath, title, source string) error {
	tag, err := id3v2.Open(outputPath, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	if title != "" {
		tag.SetTitle(title)
	}
	if source != "" {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    tag.DefaultEncoding(),
			Description: sourceFrameDescription,
			Value:       source,
		})
	}
	return tag.Save()
}
