// Package settings loads the rendering and correlation defaults from a
// TOML file. The file is optional, a missing file yields the built in
// defaults.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is looked up in the user home directory unless the
// path is overridden by VW_SETTINGS_PATH.
const DefaultFileName = ".vwrc"

// ShaderLanguage selects the shader dialect the render pipeline asks
// for, a pair value means try the first and fall back to the second.
type ShaderLanguage string

const (
	LanguageCGGLSL ShaderLanguage = "CG_GLSL"
	LanguageGLSLCG ShaderLanguage = "GLSL_CG"
	LanguageGLSL   ShaderLanguage = "GLSL"
	LanguageCG     ShaderLanguage = "CG"
)

func (l ShaderLanguage) Valid() bool {
	switch l {
	case LanguageCGGLSL, LanguageGLSLCG, LanguageGLSL, LanguageCG:
		return true
	}
	return false
}

type TreeSettings struct {
	// MinScale is the fraction of the root extent below which index
	// cells stop splitting, zero keeps the index default
	MinScale float64 `toml:"min_scale"`
	// PadExtent widens flat axes when an index is seeded
	PadExtent float64 `toml:"pad_extent"`
}

type CorrelationSettings struct {
	KernWidth          int     `toml:"kern_width"`
	KernHeight         int     `toml:"kern_height"`
	CrossCorrThreshold float64 `toml:"cross_corr_threshold"`
	TwoSigmaSqr        float64 `toml:"two_sigma_sqr"`
	HorizontalSubpixel bool    `toml:"horizontal_subpixel"`
	VerticalSubpixel   bool    `toml:"vertical_subpixel"`
}

type Settings struct {
	ShaderLanguage ShaderLanguage `toml:"shader_language"`
	ShaderBasePath string         `toml:"shader_base_path"`
	// AssemblyCachePath empty disables the assembly cache
	AssemblyCachePath string              `toml:"assembly_cache_path"`
	MemoryRecycling   bool                `toml:"memory_recycling"`
	Tree              TreeSettings        `toml:"tree"`
	Correlation       CorrelationSettings `toml:"correlation"`
}

func Default() Settings {
	return Settings{
		ShaderLanguage:  LanguageCGGLSL,
		MemoryRecycling: true,
		Tree: TreeSettings{
			PadExtent: 0.5,
		},
		Correlation: CorrelationSettings{
			KernWidth:          25,
			KernHeight:         25,
			CrossCorrThreshold: 2.0,
			TwoSigmaSqr:        50.0,
			HorizontalSubpixel: true,
			VerticalSubpixel:   true,
		},
	}
}

// Path returns the settings file location, VW_SETTINGS_PATH wins over
// the file in the home directory.
func Path() string {
	if p := os.Getenv("VW_SETTINGS_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// Load reads the file over the defaults. A missing file is not an
// error.
func Load(path string) (Settings, error) {
	s := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return s, fmt.Errorf("decode settings file %s: %w", path, err)
	}
	if !s.ShaderLanguage.Valid() {
		return s, fmt.Errorf("unknown shader language %q", s.ShaderLanguage)
	}
	return s, nil
}
