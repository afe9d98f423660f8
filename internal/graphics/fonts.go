package graphics

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts holds the two weights every layout uses.
type Fonts struct {
	Regular *truetype.Font
	Bold    *truetype.Font
}

var (
	defaultFontsOnce sync.Once
	defaultFonts     Fonts
	defaultFontsErr  error
)

// DefaultFonts returns the embedded Go fonts.
func DefaultFonts() (Fonts, error) {
	defaultFontsOnce.Do(func() {
		regular, err := truetype.Parse(goregular.TTF)
		if err != nil {
			defaultFontsErr = fmt.Errorf("parse go regular: %w", err)
			return
		}
		bold, err := truetype.Parse(gobold.TTF)
		if err != nil {
			defaultFontsErr = fmt.Errorf("parse go bold: %w", err)
			return
		}
		defaultFonts = Fonts{Regular: regular, Bold: bold}
	})
	return defaultFonts, defaultFontsErr
}

// LoadFonts parses the given TTF files, falling back to the embedded fonts for
// any empty path.
func LoadFonts(regularPath, boldPath string) (Fonts, error) {
	fonts, err := DefaultFonts()
	if err != nil {
		return Fonts{}, err
	}
	if strings.TrimSpace(regularPath) != "" {
		if fonts.Regular, err = parseFontFile(regularPath); err != nil {
			return Fonts{}, err
		}
	}
	if strings.TrimSpace(boldPath) != "" {
		if fonts.Bold, err = parseFontFile(boldPath); err != nil {
			return Fonts{}, err
		}
	}
	return fonts, nil
}

func parseFontFile(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}

type faceKey struct {
	size float64
	bold bool
}

// faceCache builds faces lazily. Faces are not safe for concurrent use, so
// each render owns its own cache.
type faceCache struct {
	fonts Fonts
	faces map[faceKey]font.Face
}

func newFaceCache(fonts Fonts) *faceCache {
	return &faceCache{fonts: fonts, faces: map[faceKey]font.Face{}}
}

func (c *faceCache) face(size float64, bold bool) font.Face {
	key := faceKey{size: size, bold: bold}
	if f, ok := c.faces[key]; ok {
		return f
	}
	src := c.fonts.Regular
	if bold {
		src = c.fonts.Bold
	}
	f := truetype.NewFace(src, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	c.faces[key] = f
	return f
}

func (c *faceCache) close() {
	for _, f := range c.faces {
		_ = f.Close()
	}
}
