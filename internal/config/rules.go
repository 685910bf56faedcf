package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/legistruct/internal/classify"
	"github.com/dgallion1/legistruct/internal/emphasis"
	"github.com/dgallion1/legistruct/internal/export"
	"github.com/dgallion1/legistruct/internal/normalize"
)

// EmphasisRule selects the heading emphasis predicate.
type EmphasisRule struct {
	// Mode is one of auto, rgb, bold, size, source or none.
	Mode        string  `yaml:"mode"`
	MinBlue     uint8   `yaml:"min_blue"`
	MaxRed      uint8   `yaml:"max_red"`
	MaxGreen    uint8   `yaml:"max_green"`
	MinFontSize float64 `yaml:"min_font_size"`
}

// Rules holds every tunable of the parsing pipeline for one family of
// documents.
type Rules struct {
	HeaderFooter    []string           `yaml:"header_footer"`
	Emphasis        EmphasisRule       `yaml:"emphasis"`
	Patterns        classify.Patterns  `yaml:"patterns"`
	Keywords        classify.Keywords  `yaml:"keywords"`
	OCRRepairs      []normalize.Repair `yaml:"ocr_repairs"`
	PremierID       string             `yaml:"premier_id"`
	DuplicatePolicy string             `yaml:"duplicate_policy"`
	SkipTOC         bool               `yaml:"skip_toc"`
	DropTOCEntries  bool               `yaml:"drop_toc_entries"`
	FootnoteRatio   float64            `yaml:"footnote_ratio"`
	NameJoiner      string             `yaml:"name_joiner"`
}

// DefaultRules are tuned for French tax code editions.
func DefaultRules() Rules {
	return Rules{
		HeaderFooter: normalize.DefaultHeaderFooter(),
		Emphasis: EmphasisRule{
			Mode:     "auto",
			MinBlue:  emphasis.DefaultRGB.MinBlue,
			MaxRed:   emphasis.DefaultRGB.MaxRed,
			MaxGreen: emphasis.DefaultRGB.MaxGreen,
		},
		Patterns:        classify.DefaultPatterns(),
		Keywords:        classify.DefaultKeywords(),
		OCRRepairs:      normalize.DefaultRepairs(),
		PremierID:       "1",
		DuplicatePolicy: string(export.Suffix),
		SkipTOC:         true,
		DropTOCEntries:  true,
		FootnoteRatio:   0.85,
		NameJoiner:      " – ",
	}
}

// LoadRules reads a YAML rules file over DefaultRules. Keys missing from the
// file keep their default; lists given in the file replace the default list.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("rules %s: %w", path, err)
	}
	return rules, nil
}

func (r Rules) Validate() error {
	if _, err := r.EmphasisClassifier(); err != nil {
		return err
	}
	if _, err := classify.New(r.ClassifyOptions()); err != nil {
		return fmt.Errorf("patterns: %w", err)
	}
	if _, err := export.ParsePolicy(r.DuplicatePolicy); err != nil {
		return err
	}
	if r.FootnoteRatio < 0 || r.FootnoteRatio >= 1 {
		return fmt.Errorf("footnote_ratio must be in [0, 1), got %v", r.FootnoteRatio)
	}
	for i, rep := range r.OCRRepairs {
		if rep.From == "" {
			return fmt.Errorf("ocr_repairs[%d]: empty from", i)
		}
		switch rep.Context {
		case "", normalize.Anywhere, normalize.BetweenLetters:
		default:
			return fmt.Errorf("ocr_repairs[%d]: unknown context %q", i, rep.Context)
		}
	}
	return nil
}

// EmphasisClassifier builds the predicate named by Emphasis.Mode.
func (r Rules) EmphasisClassifier() (emphasis.Classifier, error) {
	rgb := emphasis.RGBThreshold{MinBlue: r.Emphasis.MinBlue, MaxRed: r.Emphasis.MaxRed, MaxGreen: r.Emphasis.MaxGreen}
	size := emphasis.FontSize{MinSize: r.Emphasis.MinFontSize}
	switch r.Emphasis.Mode {
	case "", "auto":
		cs := []emphasis.Classifier{emphasis.SourceFlag{}, rgb, emphasis.BoldFont{}}
		if size.MinSize > 0 {
			cs = append(cs, size)
		}
		return emphasis.Any(cs...), nil
	case "rgb":
		return rgb, nil
	case "bold":
		return emphasis.BoldFont{}, nil
	case "size":
		if size.MinSize <= 0 {
			return nil, fmt.Errorf("emphasis mode size needs min_font_size")
		}
		return size, nil
	case "source":
		return emphasis.SourceFlag{}, nil
	case "none":
		return emphasis.None{}, nil
	}
	return nil, fmt.Errorf("unknown emphasis mode %q", r.Emphasis.Mode)
}

func (r Rules) NormalizeOptions() normalize.Options {
	return normalize.Options{HeaderFooter: r.HeaderFooter, Repairs: r.OCRRepairs}
}

func (r Rules) FilterOptions() normalize.FilterOptions {
	return normalize.FilterOptions{
		SkipTOC:        r.SkipTOC,
		DropTOCEntries: r.DropTOCEntries,
		FootnoteRatio:  r.FootnoteRatio,
	}
}

// ClassifyOptions falls back to the default predicate when the mode is
// invalid; Validate reports that case.
func (r Rules) ClassifyOptions() classify.Options {
	emph, err := r.EmphasisClassifier()
	if err != nil {
		emph = emphasis.Default()
	}
	return classify.Options{
		Patterns:  r.Patterns,
		Keywords:  r.Keywords,
		PremierID: r.PremierID,
		Emphasis:  emph,
	}
}

// Policy returns the duplicate policy, Suffix if unset or invalid.
func (r Rules) Policy() export.DuplicatePolicy {
	p, err := export.ParsePolicy(r.DuplicatePolicy)
	if err != nil {
		return export.Suffix
	}
	return p
}
