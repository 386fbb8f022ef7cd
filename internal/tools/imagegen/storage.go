package imagegen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const maxSlugLength = 40

// SaveImage normalizes and writes image bytes into dir, returning the
// stored filename. The prompt contributes a short readable slug so the
// storage directory stays navigable.
func SaveImage(dir, prompt string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	normalized, ext, ok := normalizeImage(data)
	if !ok {
		// Could not decode; store the raw bytes as delivered.
		normalized, ext = data, ".png"
	}

	name := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
	if slug := slugify(prompt); slug != "" {
		name += "_" + slug
	}
	name += ext

	if err := os.WriteFile(filepath.Join(dir, name), normalized, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return name, nil
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}
