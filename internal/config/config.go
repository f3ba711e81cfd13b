package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultInterval is how often the buffer is autosaved.
const DefaultInterval = 60 * time.Second

// Settings are the values that can come from the config file or the
// environment. Flags override them in package cli.
type Settings struct {
	AutosaveDir    string
	Interval       time.Duration
	StateDir       string
	LogLevel       string
	LogFile        string
	OutlineVisible bool
	NvimAddress    string
	ServeAddr      string
}

// fileSettings is the YAML shape of the config file.
type fileSettings struct {
	AutosaveDir    string `yaml:"autosave_dir"`
	Interval       string `yaml:"interval"`
	StateDir       string `yaml:"state_dir"`
	LogLevel       string `yaml:"log_level"`
	LogFile        string `yaml:"log_file"`
	OutlineVisible *bool  `yaml:"outline_visible"`
	NvimAddress    string `yaml:"nvim_address"`
	ServeAddr      string `yaml:"serve"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Interval:       DefaultInterval,
		LogLevel:       "info",
		OutlineVisible: true,
	}
}

// DefaultPath returns the config file location, honouring XDG_CONFIG_HOME.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bookscript", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bookscript", "config.yaml")
}

// Load resolves settings once: defaults, then the YAML file at path, then
// a .env file and the environment. A missing file is only an error when
// required is set.
func Load(path string, required bool) (Settings, error) {
	s := Defaults()
	if path != "" {
		if err := applyFile(&s, path, required); err != nil {
			return Settings{}, err
		}
	}
	// A .env in the working directory is optional.
	_ = godotenv.Load()
	if err := applyEnv(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func applyFile(s *Settings, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&s.AutosaveDir, fs.AutosaveDir)
	setString(&s.StateDir, fs.StateDir)
	setString(&s.LogLevel, fs.LogLevel)
	setString(&s.LogFile, fs.LogFile)
	setString(&s.NvimAddress, fs.NvimAddress)
	setString(&s.ServeAddr, fs.ServeAddr)
	if fs.OutlineVisible != nil {
		s.OutlineVisible = *fs.OutlineVisible
	}
	if fs.Interval != "" {
		d, err := parseInterval(fs.Interval)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		s.Interval = d
	}
	return nil
}

func applyEnv(s *Settings) error {
	setString(&s.AutosaveDir, os.Getenv("BKS_AUTOSAVE_DIR"))
	setString(&s.StateDir, os.Getenv("BKS_STATE_DIR"))
	setString(&s.LogLevel, os.Getenv("BKS_LOG_LEVEL"))
	setString(&s.LogFile, os.Getenv("BKS_LOG_FILE"))
	setString(&s.NvimAddress, os.Getenv("NVIM_LISTEN_ADDRESS"))
	if v := os.Getenv("BKS_INTERVAL"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("BKS_INTERVAL: %w", err)
		}
		s.Interval = d
	}
	return nil
}

// parseInterval accepts a Go duration ("90s", "2m") or a plain number of
// seconds.
func parseInterval(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", v)
	}
	return d, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
