package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neurlang/specgram/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, as in SPECGRAM_NFFT.
const EnvPrefix = "SPECGRAM"

// DefaultEnd is the exclusive end of the analysed slice when none is given.
const DefaultEnd = 10_000_000

// Config holds all configuration for the spectrogram pipeline
type Config struct {
	Capture     CaptureConfig
	Slice       SliceConfig
	Spectrogram SpectrogramConfig
	Render      RenderConfig
	Output      OutputConfig
	Log         LogConfig
	S3          storage.S3Config
}

// CaptureConfig selects the recording to analyse.
type CaptureConfig struct {
	Path    string
	Channel int
	Verify  bool
}

// SliceConfig is the half-open sample range [Start, End).
type SliceConfig struct {
	Start int
	End   int
	// ClampEnd is set when End was not given explicitly and may be cut back
	// to the length of the capture.
	ClampEnd bool
}

// SpectrogramConfig holds transform settings.
type SpectrogramConfig struct {
	NFFT    int
	Overlap int
	Window  string
}

// RenderConfig holds image settings.
type RenderConfig struct {
	Width        int
	Height       int
	DynamicRange float64
	Colormap     string
}

// OutputConfig says where the image goes.
type OutputConfig struct {
	// Path is a local file or an s3:// location.
	Path string
	View bool
	Addr string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// flag name -> config key
var flagKeys = map[string]string{
	"capture":       "capture",
	"channel":       "channel",
	"verify":        "verify",
	"start":         "start",
	"end":           "end",
	"nfft":          "nfft",
	"overlap":       "overlap",
	"window":        "window",
	"width":         "width",
	"height":        "height",
	"dynamic-range": "dynamic_range",
	"colormap":      "colormap",
	"out":           "out",
	"view":          "view",
	"addr":          "addr",
	"log-level":     "log_level",
}

// Flags registers the command line flags understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.String("capture", "res/fm_radio_20250920_6msps.sigmf", "capture to analyse (.sigmf, .sigmf-meta, .sigmf-data, .wav, .flac or s3://)")
	fs.Int("channel", 0, "channel of a multi-channel capture")
	fs.Bool("verify", false, "verify the capture checksum before reading")
	fs.Int("start", 0, "first sample of the analysed slice")
	fs.Int("end", DefaultEnd, "end of the analysed slice (exclusive)")
	fs.Int("nfft", 8192, "transform length")
	fs.Int("overlap", 0, "samples shared by consecutive segments")
	fs.String("window", "hann", "window function (hann, hamming, blackman, rectangular)")
	fs.Int("width", 2048, "maximum image width in pixels")
	fs.Int("height", 1024, "maximum image height in pixels")
	fs.Float64("dynamic-range", 80, "dB below the peak covered by the colour map, 0 for the full range")
	fs.String("colormap", "viridis", "colour map (viridis, inferno, gray)")
	fs.String("out", "spectrogram.png", "output PNG file or s3:// location")
	fs.Bool("view", false, "serve the spectrogram in the browser until dismissed")
	fs.String("addr", "127.0.0.1:8080", "listen address of the viewer")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("capture", "res/fm_radio_20250920_6msps.sigmf")
	v.SetDefault("channel", 0)
	v.SetDefault("verify", false)
	v.SetDefault("start", 0)
	// "end" has no default so an explicit value can be told apart
	v.SetDefault("nfft", 8192)
	v.SetDefault("overlap", 0)
	v.SetDefault("window", "hann")
	v.SetDefault("width", 2048)
	v.SetDefault("height", 1024)
	v.SetDefault("dynamic_range", 80.0)
	v.SetDefault("colormap", "viridis")
	v.SetDefault("out", "spectrogram.png")
	v.SetDefault("view", false)
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", true)
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
}

// Load loads configuration. Flags may be nil; file names a config file and
// may be empty, in which case specgram.yaml is read from the working
// directory when present.
func Load(flags *pflag.FlagSet, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("specgram")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	cfg.Capture.Path = v.GetString("capture")
	cfg.Capture.Channel = v.GetInt("channel")
	cfg.Capture.Verify = v.GetBool("verify")
	cfg.Slice.Start = v.GetInt("start")
	if v.IsSet("end") {
		cfg.Slice.End = v.GetInt("end")
	} else {
		cfg.Slice.End = DefaultEnd
		cfg.Slice.ClampEnd = true
	}
	cfg.Spectrogram.NFFT = v.GetInt("nfft")
	cfg.Spectrogram.Overlap = v.GetInt("overlap")
	cfg.Spectrogram.Window = v.GetString("window")
	cfg.Render.Width = v.GetInt("width")
	cfg.Render.Height = v.GetInt("height")
	cfg.Render.DynamicRange = v.GetFloat64("dynamic_range")
	cfg.Render.Colormap = v.GetString("colormap")
	cfg.Output.Path = v.GetString("out")
	cfg.Output.View = v.GetBool("view")
	cfg.Output.Addr = v.GetString("addr")
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Pretty = v.GetBool("log_pretty")
	cfg.S3.Region = v.GetString("s3_region")
	cfg.S3.Endpoint = v.GetString("s3_endpoint")
	cfg.S3.AccessKey = v.GetString("s3_access_key")
	cfg.S3.SecretKey = v.GetString("s3_secret_key")

	log.Debug().
		Str("config_file", v.ConfigFileUsed()).
		Str("capture", cfg.Capture.Path).
		Int("start", cfg.Slice.Start).
		Int("end", cfg.Slice.End).
		Bool("clamp_end", cfg.Slice.ClampEnd).
		Int("nfft", cfg.Spectrogram.NFFT).
		Msg("configuration loaded")

	return &cfg, nil
}

// UsesS3 reports whether the capture or the output lives in object storage.
func (c *Config) UsesS3() bool {
	return storage.IsURI(c.Capture.Path) || storage.IsURI(c.Output.Path)
}
