package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DefaultModel      = "grok-4-1-fast"
	DefaultLLMBaseURL = "https://api.x.ai/v1"
	DefaultListenAddr = ":5328"
	DefaultServerURL  = "http://localhost:5328"
	DefaultTimeout    = 5 * time.Minute
)

// Config holds runtime configuration values shared by the server and CLI.
type Config struct {
	ListenAddr string
	BackendURL string
	ServerURL  string
	Model      string
	LLMBaseURL string
	Timeout    time.Duration
	Verbose    bool
	Quiet      bool
	JSON       bool
}

type rawConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	BackendURL string `mapstructure:"backend_url"`
	ServerURL  string `mapstructure:"server_url"`
	Model      string `mapstructure:"model"`
	LLMBaseURL string `mapstructure:"llm_base_url"`
	Timeout    string `mapstructure:"timeout"`
	Verbose    bool   `mapstructure:"verbose"`
	Quiet      bool   `mapstructure:"quiet"`
	JSON       bool   `mapstructure:"json"`
}

// Load resolves configuration from defaults, config files, env, and flags.
func Load(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WRAPPED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("backend_url", "")
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("llm_base_url", DefaultLLMBaseURL)
	v.SetDefault("timeout", DefaultTimeout.String())
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("json", false)

	if cmd != nil {
		_ = v.BindPFlag("listen_addr", cmd.Flags().Lookup("listen"))
		_ = v.BindPFlag("backend_url", cmd.Flags().Lookup("backend"))
		_ = v.BindPFlag("server_url", cmd.Flags().Lookup("server"))
		_ = v.BindPFlag("model", cmd.Flags().Lookup("model"))
		_ = v.BindPFlag("llm_base_url", cmd.Flags().Lookup("llm-base-url"))
		_ = v.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))
		_ = v.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
		_ = v.BindPFlag("quiet", cmd.Flags().Lookup("quiet"))
		_ = v.BindPFlag("json", cmd.Flags().Lookup("json"))
	}

	if seconds := os.Getenv("WRAPPED_TIMEOUT_SECONDS"); seconds != "" {
		v.Set("timeout", seconds+"s")
	}
	if baseURL := os.Getenv("XAI_BASE_URL"); baseURL != "" && os.Getenv("WRAPPED_LLM_BASE_URL") == "" {
		v.Set("llm_base_url", baseURL)
	}

	if err := loadConfigFile(v); err != nil {
		return Config{}, err
	}

	var raw rawConfig
	decoder, _ := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: &raw})
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return Config{}, err
	}

	timeout := DefaultTimeout
	if raw.Timeout != "" {
		parsed, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid timeout duration: %w", err)
		}
		timeout = parsed
	}

	cfg := Config{
		ListenAddr: raw.ListenAddr,
		BackendURL: raw.BackendURL,
		ServerURL:  raw.ServerURL,
		Model:      raw.Model,
		LLMBaseURL: raw.LLMBaseURL,
		Timeout:    timeout,
		Verbose:    raw.Verbose,
		Quiet:      raw.Quiet,
		JSON:       raw.JSON,
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = DefaultLLMBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return cfg, nil
}

func loadConfigFile(v *viper.Viper) error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	base := filepath.Join(configDir, "x-wrapped")
	candidates := []string{
		filepath.Join(base, "config.yaml"),
		filepath.Join(base, "config.yml"),
		filepath.Join(base, "config.json"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
			return nil
		}
	}
	return nil
}
