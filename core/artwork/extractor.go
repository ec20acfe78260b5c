package artwork

import (
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// ExtractEmbedded reads the metadata of the audio file at audioPath and, when
// it carries an embedded picture (ID3 APIC frame or the MP4/FLAC equivalent),
// writes the raw picture bytes to coverPath. Returns true when a cover file
// was written.
func ExtractEmbedded(audioPath, coverPath string) (bool, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return false, fmt.Errorf("failed to open audio file %s: %w", audioPath, err)
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return false, fmt.Errorf("failed to read tags from %s: %w", audioPath, err)
	}

	pic := meta.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return false, nil
	}

	if err := os.WriteFile(coverPath, pic.Data, 0644); err != nil {
		return false, fmt.Errorf("failed to write cover file %s: %w", coverPath, err)
	}
	return true, nil
}
