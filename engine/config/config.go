// Package config handles engine configuration loading and management.
package config

// Config holds all engine settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings. Each field maps to
// exactly one narrow update on the graphics context, so a settings change
// never triggers a wider resource rebuild than the field implies.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`

	// Msaa is the hardware multisample count: 1 (off), 2, 4, or 8.
	Msaa int `yaml:"msaa"`

	// ScreenSpaceAA selects the post-process anti-aliasing mode:
	// "off", "fxaa", or "cmaa2".
	ScreenSpaceAA string `yaml:"screen_space_aa"`

	// ShadowDetail selects shadow map resolution: "low", "medium",
	// "high", or "ultra".
	ShadowDetail string `yaml:"shadow_detail"`

	// TextureFiltering selects the texture sampler mode: "nearest",
	// "linear", or "anisotropic".
	TextureFiltering string `yaml:"texture_filtering"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:            1280,
			Height:           720,
			Fullscreen:       false,
			VSync:            true,
			Msaa:             4,
			ScreenSpaceAA:    "off",
			ShadowDetail:     "high",
			TextureFiltering: "linear",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
