// Package emphasis decides whether a styled line was typeset as a heading.
//
// Legal codes signal headings visually, but each publisher does it its own
// way: an accent colour, a bold face, a larger size. Classifier is the seam
// that lets a document pick the rule that fits it.
package emphasis

import (
	"strings"

	"github.com/dgallion1/legistruct/internal/lines"
)

// Classifier reports whether a line is emphasized. ok is false when the line
// carries no signal the classifier can judge, in which case callers fall back
// to text patterns alone.
type Classifier interface {
	Emphasized(l lines.StyledLine) (emphasized, ok bool)
}

// RGBThreshold marks a line emphasized when its ink is "blue enough":
// B > MinBlue && R < MaxRed && G < MaxGreen.
type RGBThreshold struct {
	MinBlue  uint8
	MaxRed   uint8
	MaxGreen uint8
}

// DefaultRGB matches the accent blue of the tax code editions the defaults
// were tuned on.
var DefaultRGB = RGBThreshold{MinBlue: 120, MaxRed: 100, MaxGreen: 150}

func (t RGBThreshold) Emphasized(l lines.StyledLine) (bool, bool) {
	if !l.Style.Known || !l.Style.HasColor {
		return false, false
	}
	r, g, b := l.Style.Color.Channels()
	return b > t.MinBlue && r < t.MaxRed && g < t.MaxGreen, true
}

// boldMarkers are font-name fragments that indicate a heavy weight.
var boldMarkers = []string{"bold", "black", "heavy", "semibold", "demi"}

// BoldFont uses the font weight, either from an explicit bold flag or from the
// font name (e.g. "Arial-BoldMT").
type BoldFont struct{}

func (BoldFont) Emphasized(l lines.StyledLine) (bool, bool) {
	if !l.Style.Known {
		return false, false
	}
	if l.Style.Bold {
		return true, true
	}
	if l.Style.FontName == "" {
		return false, false
	}
	return IsBoldFontName(l.Style.FontName), true
}

// IsBoldFontName reports whether a PDF font name denotes a bold face.
func IsBoldFontName(name string) bool {
	name = strings.ToLower(name)
	for _, m := range boldMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// FontSize marks lines set at MinSize points or larger.
type FontSize struct {
	MinSize float64
}

func (f FontSize) Emphasized(l lines.StyledLine) (bool, bool) {
	if !l.Style.Known || l.Style.FontSize <= 0 || f.MinSize <= 0 {
		return false, false
	}
	return l.Style.FontSize >= f.MinSize, true
}

// SourceFlag trusts the emphasis the source itself reported.
type SourceFlag struct{}

func (SourceFlag) Emphasized(l lines.StyledLine) (bool, bool) {
	if !l.Style.Known {
		return false, false
	}
	return l.Style.Emphasized, true
}

// None never judges; every line goes through the text-only path.
type None struct{}

func (None) Emphasized(lines.StyledLine) (bool, bool) { return false, false }

type anyOf []Classifier

// Any combines classifiers: the line is emphasized if any member that can
// judge it says so, and judged if any member could.
func Any(cs ...Classifier) Classifier {
	return anyOf(cs)
}

func (a anyOf) Emphasized(l lines.StyledLine) (bool, bool) {
	judged := false
	for _, c := range a {
		e, ok := c.Emphasized(l)
		if !ok {
			continue
		}
		if e {
			return true, true
		}
		judged = true
	}
	return false, judged
}

// Default is the classifier used when no rule is configured.
func Default() Classifier {
	return Any(SourceFlag{}, DefaultRGB, BoldFont{})
}
