package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/sokinpui/bookscript/internal/config"
	"github.com/sokinpui/bookscript/internal/export"
)

// Config holds the resolved configuration: defaults, config file and
// environment, overridden by command-line flags.
type Config struct {
	Path        string
	AutosaveDir string
	Interval    time.Duration
	NoAutosave  bool
	Recover     bool
	StateDir    string

	Outline bool
	Stats   bool
	Export  string
	Output  string
	Paste   bool

	Undo    bool
	Redo    bool
	History bool

	Serve       string
	NvimAddress string
	HideOutline bool

	LogLevel   string
	LogFile    string
	Journal    bool
	ConfigFile string
}

// Headless reports whether the flags select a mode that prints and exits
// instead of starting the editor.
func (c *Config) Headless() bool {
	return c.Outline || c.Stats || c.Export != "" || c.Undo || c.Redo || c.History
}

// AutosaveInterval returns the effective interval, zero when disabled.
func (c *Config) AutosaveInterval() time.Duration {
	if c.NoAutosave {
		return 0
	}
	return c.Interval
}

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses args (without the program name).
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}
	fs := pflag.NewFlagSet("bks", pflag.ContinueOnError)

	// Files and autosave
	fs.StringVarP(&cfg.AutosaveDir, "autosave-dir", "a", "", "Directory for the autosave file (default: ~/.local/share/bookscript/projects).")
	fs.DurationVarP(&cfg.Interval, "interval", "i", config.DefaultInterval, "Autosave interval.")
	fs.BoolVar(&cfg.NoAutosave, "no-autosave", false, "Disable the periodic autosave.")
	fs.BoolVar(&cfg.Recover, "recover", false, "Start from the autosave file when no path is given.")
	fs.StringVar(&cfg.StateDir, "state-dir", "", "Directory for save history and logs (default: ~/.local/share/bookscript).")
	fs.BoolVar(&cfg.Paste, "paste", false, "Read the initial text from stdin (pipe) or the clipboard.")

	// Headless modes
	fs.BoolVar(&cfg.Outline, "outline", false, "Print the document outline and exit.")
	fs.BoolVar(&cfg.Stats, "stats", false, "Print document statistics and exit.")
	fs.StringVar(&cfg.Export, "export", "", "Export the document as 'md' or 'html' and exit.")
	fs.StringVarP(&cfg.Output, "output", "o", "", "Write the export to this file instead of stdout.")

	// Mutually exclusive history group
	fs.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last save.")
	fs.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone save.")
	fs.BoolVar(&cfg.History, "history", false, "Print the save history and exit.")

	// Integrations
	fs.StringVar(&cfg.Serve, "serve", "", "Serve a live HTML preview on this address (e.g. 127.0.0.1:8080).")
	fs.StringVar(&cfg.NvimAddress, "nvim", "", "Neovim listen address (default: $NVIM_LISTEN_ADDRESS).")
	fs.BoolVar(&cfg.HideOutline, "no-outline", false, "Start with the outline panel hidden.")

	// Logging and config
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn or error.")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Log file (default: <state dir>/bks.log).")
	fs.BoolVar(&cfg.Journal, "journal", false, "Also log to the systemd journal.")
	fs.StringVar(&cfg.ConfigFile, "config", "", "Config file (default: ~/.config/bookscript/config.yaml).")

	fs.Usage = func() {
		fmt.Println("Usage: bks [flags] [file]")
		fmt.Println("\nEdit a BookScript document with periodic autosave.")
		fmt.Println("\nExample: bks --outline draft.bks")
		fmt.Println("\nFlags:")
		fmt.Print(fs.FlagUsages())
	}
	// Errors are returned to the caller, which reports them once.
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.Path = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one file, got %d", fs.NArg())
	}

	configPath, required := cfg.ConfigFile, true
	if configPath == "" {
		configPath, required = config.DefaultPath(), false
	}
	settings, err := config.Load(configPath, required)
	if err != nil {
		return nil, err
	}
	merge(cfg, fs, settings)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge fills every flag the user did not set from settings.
func merge(cfg *Config, fs *pflag.FlagSet, s config.Settings) {
	if !fs.Changed("autosave-dir") {
		cfg.AutosaveDir = s.AutosaveDir
	}
	if !fs.Changed("interval") {
		cfg.Interval = s.Interval
	}
	if !fs.Changed("state-dir") {
		cfg.StateDir = s.StateDir
	}
	if !fs.Changed("log-level") {
		cfg.LogLevel = s.LogLevel
	}
	if !fs.Changed("log-file") {
		cfg.LogFile = s.LogFile
	}
	if !fs.Changed("nvim") {
		cfg.NvimAddress = s.NvimAddress
	}
	if !fs.Changed("serve") {
		cfg.Serve = s.ServeAddr
	}
	if !fs.Changed("no-outline") {
		cfg.HideOutline = !s.OutlineVisible
	}
}

func validate(cfg *Config) error {
	if cfg.Undo && cfg.Redo {
		return errors.New("--undo and --redo are mutually exclusive")
	}
	if cfg.Interval < 0 {
		return errors.New("--interval must not be negative")
	}
	if cfg.Export != "" {
		if _, err := export.ParseFormat(cfg.Export); err != nil {
			return err
		}
	}
	if cfg.Output != "" && cfg.Export == "" {
		return errors.New("--output requires --export")
	}
	if (cfg.Outline || cfg.Stats || cfg.Export != "") && cfg.Path == "" && !cfg.Paste && !cfg.Recover {
		return errors.New("a file, --paste or --recover is required")
	}
	return nil
}
