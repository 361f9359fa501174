package downloader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// moovScanLimit is how far into an MP4 the container atoms are searched for.
const moovScanLimit = 1 << 20

var errInvalidContainer = errors.New("unexpected container")

// checkOutputFile inspects the header of a finished output. The result is
// advisory: a mismatch is logged and the output is kept.
func checkOutputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: output file is empty", errInvalidContainer)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return checkMP4(path)
	case ".mp3":
		return checkMP3(path)
	}
	return nil
}

func readHeader(path string, size int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	buf := make([]byte, size)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func checkMP4(path string) error {
	head, err := readHeader(path, moovScanLimit)
	if err != nil {
		return fmt.Errorf("read mp4 header: %w", err)
	}
	if len(head) < 8 || string(head[4:8]) != "ftyp" {
		return fmt.Errorf("%w: missing ftyp box", errInvalidContainer)
	}
	if !bytes.Contains(head, []byte("moov")) && !bytes.Contains(head, []byte("moof")) {
		// moov may trail the media data in large files
		if info, err := os.Stat(path); err == nil && info.Size() <= moovScanLimit {
			return fmt.Errorf("%w: missing moov/moof atom", errInvalidContainer)
		}
	}
	return nil
}

func checkMP3(path string) error {
	head, err := readHeader(path, 3)
	if err != nil {
		return fmt.Errorf("read mp3 header: %w", err)
	}
	if len(head) == 3 && (string(head) == "ID3" || (head[0] == 0xFF && head[1]&0xE0 == 0xE0)) {
		return nil
	}
	return fmt.Errorf("%w: invalid mp3 header", errInvalidContainer)
}
