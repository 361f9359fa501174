package downloader

import (
	"fmt"
	"path/filepath"
	"regexp"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeName replaces every character outside [A-Za-z0-9_-] with "_".
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// OutputPath returns <dir>/<base><ext> for the given job shape.
func OutputPath(dir, base string, shape JobShape) string {
	name := base + shape.Extension()
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// tempArtifactPath names the temporary artifact of one stream of one job.
// The job id keeps concurrent jobs sharing a directory apart.
func tempArtifactPath(dir, label, jobID string) string {
	name := fmt.Sprintf("temp_%s-%s.mp4", label, jobID)
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for n >= unit*div && exp < 3 {
		div *= unit
		exp++
	}
	value := float64(n) / float64(div)
	suffix := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f%s", value, suffix[exp])
}
