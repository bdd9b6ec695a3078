package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Duration decodes TOML strings such as "350ms".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

type Surface struct {
	MaxWidth       float64 `toml:"max_width"`
	MaxHeight      float64 `toml:"max_height"`
	Padding        float64 `toml:"padding"`
	FallbackWidth  float64 `toml:"fallback_width"`
	FallbackHeight float64 `toml:"fallback_height"`
	Background     string  `toml:"background"` // plain|grid|ruled|dotted
}

type Stroke struct {
	Color   string  `toml:"color"`
	Width   float64 `toml:"width"`
	Opacity float64 `toml:"opacity"`
	Mode    string  `toml:"mode"` // draw|erase|highlighter
}

type Recognition struct {
	Mode        string   `toml:"mode"` // off|demo|remote
	Endpoint    string   `toml:"endpoint"`
	Discover    bool     `toml:"discover"`
	Margin      float64  `toml:"margin"`
	BottomSlack float64  `toml:"bottom_slack"`
	Offset      float64  `toml:"offset"`
	DemoDelay   Duration `toml:"demo_delay"`
	DemoText    string   `toml:"demo_text"`
	Timeout     Duration `toml:"timeout"`
}

type Service struct {
	Listen        string   `toml:"listen"`
	Engine        string   `toml:"engine"` // azure|tesseract
	Languages     []string `toml:"languages"`
	PollInterval  Duration `toml:"poll_interval"`
	PollAttempts  int      `toml:"poll_attempts"`
	Advertise     bool     `toml:"advertise"`
	AzureEndpoint string   `toml:"azure_endpoint"`
	AzureKey      string   `toml:"azure_key"`
}

type Log struct {
	Level string `toml:"level"`
}

type Config struct {
	Surface     Surface     `toml:"surface"`
	Stroke      Stroke      `toml:"stroke"`
	Recognition Recognition `toml:"recognition"`
	Service     Service     `toml:"service"`
	Log         Log         `toml:"log"`
}

// Defaults returns a Config that runs without any file or environment.
func Defaults() Config {
	return Config{
		Surface: Surface{
			MaxWidth:       1200,
			MaxHeight:      800,
			Padding:        20,
			FallbackWidth:  800,
			FallbackHeight: 600,
			Background:     "plain",
		},
		Stroke: Stroke{Color: "#111111", Width: 4, Opacity: 1, Mode: "draw"},
		Recognition: Recognition{
			Mode:        "off",
			Margin:      18,
			BottomSlack: 20,
			Offset:      10,
			DemoDelay:   Duration{350 * time.Millisecond},
			DemoText:    "Detected text…",
			Timeout:     Duration{30 * time.Second},
		},
		Service: Service{
			Listen:       ":8787",
			Engine:       "azure",
			Languages:    []string{"eng"},
			PollInterval: Duration{600 * time.Millisecond},
			PollAttempts: 12,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// Parse decodes TOML text over the defaults without touching the environment.
func Parse(data string) (Config, error) {
	cfg := Defaults()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overlays the recognised environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv("AZURE_VISION_ENDPOINT")); v != "" {
		c.Service.AzureEndpoint = v
	}
	if v := strings.TrimSpace(getenv("AZURE_VISION_KEY")); v != "" {
		c.Service.AzureKey = v
	}
	if v := strings.TrimSpace(getenv("INKNOTE_RECOGNIZE_URL")); v != "" {
		c.Recognition.Endpoint = v
	}
	if v := strings.TrimSpace(getenv("INKNOTE_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
}

// Validate checks enumerations and limits. Credentials are not checked here:
// a missing key is a request-level failure of the recognition service.
func (c Config) Validate() error {
	var errs []error
	if c.Surface.MaxWidth <= 0 || c.Surface.MaxHeight <= 0 {
		errs = append(errs, fmt.Errorf("surface max size must be positive"))
	}
	if c.Surface.FallbackWidth <= 0 || c.Surface.FallbackHeight <= 0 {
		errs = append(errs, fmt.Errorf("surface fallback size must be positive"))
	}
	if !oneOf(c.Surface.Background, "plain", "grid", "ruled", "dotted") {
		errs = append(errs, fmt.Errorf("unknown background %q", c.Surface.Background))
	}
	if !oneOf(c.Stroke.Mode, "draw", "erase", "highlighter") {
		errs = append(errs, fmt.Errorf("unknown stroke mode %q", c.Stroke.Mode))
	}
	if c.Stroke.Width <= 0 {
		errs = append(errs, fmt.Errorf("stroke width must be positive"))
	}
	if c.Stroke.Opacity < 0 || c.Stroke.Opacity > 1 {
		errs = append(errs, fmt.Errorf("stroke opacity must be within [0,1]"))
	}
	if !oneOf(c.Recognition.Mode, "off", "demo", "remote") {
		errs = append(errs, fmt.Errorf("unknown recognition mode %q", c.Recognition.Mode))
	}
	if c.Recognition.Margin < 0 || c.Recognition.BottomSlack < 0 {
		errs = append(errs, fmt.Errorf("recognition margins must not be negative"))
	}
	if !oneOf(c.Service.Engine, "azure", "tesseract") {
		errs = append(errs, fmt.Errorf("unknown engine %q", c.Service.Engine))
	}
	if c.Service.PollAttempts <= 0 {
		errs = append(errs, fmt.Errorf("poll_attempts must be positive"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
