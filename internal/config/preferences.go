package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Preference keys.
const (
	KeyTimeoutSec      = "timeout_sec"
	KeyDefaultServer   = "default_server"
	KeyDefaultGraph    = "default_graph"
	KeyDefaultVersion  = "default_version"
	KeyHDEnabled       = "hd_enabled"
	KeyLocale          = "locale"
	KeyJavaExe         = "java_exe"
	KeyJavaOpts        = "java_opts"
	KeyOSM2GraphiumJar = "osm2graphium_jar"
	KeyIDF2GraphiumJar = "idf2graphium_jar"
	KeyOutputDir       = "output_dir"
	KeyGPXDir          = "gpx_dir"
)

var defaults = map[string]any{
	KeyTimeoutSec:      60,
	KeyDefaultServer:   "",
	KeyDefaultGraph:    "",
	KeyDefaultVersion:  "",
	KeyHDEnabled:       false,
	KeyLocale:          "en",
	KeyJavaExe:         "java",
	KeyJavaOpts:        "",
	KeyOSM2GraphiumJar: "",
	KeyIDF2GraphiumJar: "",
	KeyOutputDir:       "",
	KeyGPXDir:          "",
}

// Preferences holds scalar user preferences read from a YAML file and
// GRAPHIUM_* environment variables.
type Preferences struct {
	path string
	v    *viper.Viper
}

// PreferencesPath returns the default preferences file.
func PreferencesPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func NewPreferences(path string) (*Preferences, error) {
	p := &Preferences{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload discards in-memory values and rereads file and environment.
func (p *Preferences) Reload() error {
	v := viper.New()
	v.SetConfigFile(p.path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GRAPHIUM")
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("reading preferences: %w", err)
		}
	}
	p.v = v
	return nil
}

func (p *Preferences) Timeout() time.Duration {
	sec := p.v.GetInt(KeyTimeoutSec)
	if sec <= 0 {
		sec = defaults[KeyTimeoutSec].(int)
	}
	return time.Duration(sec) * time.Second
}

func (p *Preferences) String(key string) string { return p.v.GetString(key) }
func (p *Preferences) Bool(key string) bool     { return p.v.GetBool(key) }

// Set updates a known key and writes the preferences file.
func (p *Preferences) Set(key, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("unknown preference %q", key)
	}
	p.v.Set(key, value)
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := p.v.WriteConfigAs(p.path); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}

// All returns every known key with its effective value.
func (p *Preferences) All() map[string]any {
	out := make(map[string]any, len(defaults))
	for k := range defaults {
		out[k] = p.v.Get(k)
	}
	return out
}
