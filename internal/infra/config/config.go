package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OPENCLAW_SETUP_"

// Config is the root configuration for openclaw-setup.
type Config struct {
	Includes  []string        `yaml:"includes,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	HTTP      HTTPConfig      `yaml:"http"`
	Run       RunConfig       `yaml:"run"`
	Pairing   PairingConfig   `yaml:"pairing"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	State     StateConfig     `yaml:"state"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Defaults  WizardDefaults  `yaml:"defaults"`
}

// GatewayConfig locates the gateway's setup API.
type GatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	// Password is the setup password, sent as HTTP basic auth.
	Password string `yaml:"password,omitempty"`
	// Timeout bounds each request except the run and Tailscale calls,
	// which are bounded by run.timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPConfig tunes the setup API client.
type HTTPConfig struct {
	UserAgent      string               `yaml:"user_agent"`
	RateLimit      float64              `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst          int                  `yaml:"burst"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for the setup API.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// RunConfig controls a provisioning run.
type RunConfig struct {
	Timeout time.Duration `yaml:"timeout"` // 0 = wait for the gateway indefinitely
	Stages  StageDelays   `yaml:"stages"`
}

// StageDelays are the synthetic durations of stages without real progress.
type StageDelays struct {
	Token    time.Duration `yaml:"token"`
	Channels time.Duration `yaml:"channels"`
	Gateway  time.Duration `yaml:"gateway"`
	Health   time.Duration `yaml:"health"`
}

// PairingConfig controls the device approval poller.
type PairingConfig struct {
	Interval    time.Duration `yaml:"interval"`
	RemoveDelay time.Duration `yaml:"remove_delay"`
}

// TailscaleConfig holds Tailscale defaults.
type TailscaleConfig struct {
	DefaultHostname string `yaml:"default_hostname"`
}

// StateConfig locates the local state database.
type StateConfig struct {
	Path string `yaml:"path"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	// Output is the file the stdout exporter writes to. Empty means
	// stdout, which the interactive wizard cannot share.
	Output string `yaml:"output,omitempty"`
}

// WizardDefaults pre-fill the wizard and drive non-interactive runs.
type WizardDefaults struct {
	Flow           string                 `yaml:"flow"`
	Provider       string                 `yaml:"provider"`
	AuthChoice     string                 `yaml:"auth_choice"`
	AuthSecret     string                 `yaml:"auth_secret,omitempty"`
	Telegram       ChannelDefaults        `yaml:"telegram"`
	Discord        ChannelDefaults        `yaml:"discord"`
	Slack          SlackDefaults          `yaml:"slack"`
	Tailscale      TailscaleDefaults      `yaml:"tailscale"`
	CustomProvider CustomProviderDefaults `yaml:"custom_provider"`
}

// ChannelDefaults pre-fill a single-token channel.
type ChannelDefaults struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token,omitempty"`
}

// SlackDefaults pre-fill the Slack channel.
type SlackDefaults struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token,omitempty"`
	AppToken string `yaml:"app_token,omitempty"`
}

// TailscaleDefaults pre-fill the Tailscale step.
type TailscaleDefaults struct {
	Enabled  bool   `yaml:"enabled"`
	AuthKey  string `yaml:"auth_key,omitempty"`
	Hostname string `yaml:"hostname,omitempty"`
}

// CustomProviderDefaults pre-fill the custom provider section. Template
// names a built-in preset applied before the explicit fields.
type CustomProviderDefaults struct {
	Template  string `yaml:"template,omitempty"`
	ID        string `yaml:"id,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	API       string `yaml:"api,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	ModelID   string `yaml:"model_id,omitempty"`
}

// defaultStateDir returns $HOME/.openclaw-setup, or "./.openclaw-setup"
// when $HOME cannot be determined.
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.openclaw-setup"
	}
	return filepath.Join(home, ".openclaw-setup")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	stateDir := defaultStateDir()
	return &Config{
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			UserAgent: "openclaw-setup",
			RateLimit: 10,
			Burst:     5,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Run: RunConfig{
			Stages: StageDelays{
				Token:    500 * time.Millisecond,
				Channels: 500 * time.Millisecond,
				Gateway:  1000 * time.Millisecond,
				Health:   500 * time.Millisecond,
			},
		},
		Pairing: PairingConfig{
			Interval:    3 * time.Second,
			RemoveDelay: 1500 * time.Millisecond,
		},
		Tailscale: TailscaleConfig{
			DefaultHostname: "openclaw-railway",
		},
		State: StateConfig{
			Path: filepath.Join(stateDir, "state.db"),
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: filepath.Join(stateDir, "openclaw-setup.log"),
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Defaults: WizardDefaults{
			Flow: "quickstart",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts
// secrets. A missing file yields the defaults plus env overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Includes) > 0 {
		visited := map[string]bool{absPath: true}
		if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
			return nil, err
		}
		// The main file takes precedence over its includes.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (second pass): %w", err)
		}
		cfg.Includes = nil
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv(EnvPrefix + "CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

// ApplyEnvOverrides maps OPENCLAW_SETUP_* env vars to config fields. Setting
// a channel token env var also enables that channel.
func ApplyEnvOverrides(cfg *Config) {
	envString("BASE_URL", &cfg.Gateway.BaseURL)
	envString("PASSWORD", &cfg.Gateway.Password)
	envDuration("TIMEOUT", &cfg.Gateway.Timeout)

	// The gateway itself reads SETUP_PASSWORD; reuse it when ours is unset.
	if cfg.Gateway.Password == "" {
		if v := os.Getenv("SETUP_PASSWORD"); v != "" {
			cfg.Gateway.Password = v
		}
	}

	if v := os.Getenv(EnvPrefix + "RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.HTTP.RateLimit = f
		}
	}
	envBool("CIRCUIT_BREAKER_ENABLED", &cfg.HTTP.CircuitBreaker.Enabled)

	envDuration("RUN_TIMEOUT", &cfg.Run.Timeout)
	envDuration("PAIRING_INTERVAL", &cfg.Pairing.Interval)

	envString("STATE_PATH", &cfg.State.Path)

	envString("LOGGER_LEVEL", &cfg.Logger.Level)
	envString("LOGGER_FORMAT", &cfg.Logger.Format)
	envString("LOGGER_OUTPUT", &cfg.Logger.Output)
	envBool("TRACER_ENABLED", &cfg.Tracer.Enabled)
	envString("TRACER_EXPORTER", &cfg.Tracer.Exporter)
	envString("TRACER_OUTPUT", &cfg.Tracer.Output)

	d := &cfg.Defaults
	envString("FLOW", &d.Flow)
	envString("PROVIDER", &d.Provider)
	envString("AUTH_CHOICE", &d.AuthChoice)
	envString("AUTH_SECRET", &d.AuthSecret)
	if v := os.Getenv(EnvPrefix + "TELEGRAM_TOKEN"); v != "" {
		d.Telegram = ChannelDefaults{Enabled: true, Token: v}
	}
	if v := os.Getenv(EnvPrefix + "DISCORD_TOKEN"); v != "" {
		d.Discord = ChannelDefaults{Enabled: true, Token: v}
	}
	if v := os.Getenv(EnvPrefix + "SLACK_BOT_TOKEN"); v != "" {
		d.Slack.Enabled = true
		d.Slack.BotToken = v
	}
	if v := os.Getenv(EnvPrefix + "SLACK_APP_TOKEN"); v != "" {
		d.Slack.Enabled = true
		d.Slack.AppToken = v
	}
	if v := os.Getenv(EnvPrefix + "TAILSCALE_AUTH_KEY"); v != "" {
		d.Tailscale.Enabled = true
		d.Tailscale.AuthKey = v
	}
	envString("TAILSCALE_HOSTNAME", &d.Tailscale.Hostname)
}

// secretFields lists every config value that may hold an "enc:" secret.
func secretFields(cfg *Config) map[string]*string {
	d := &cfg.Defaults
	return map[string]*string{
		"gateway.password":            &cfg.Gateway.Password,
		"defaults.auth_secret":        &d.AuthSecret,
		"defaults.telegram.token":     &d.Telegram.Token,
		"defaults.discord.token":      &d.Discord.Token,
		"defaults.slack.bot_token":    &d.Slack.BotToken,
		"defaults.slack.app_token":    &d.Slack.AppToken,
		"defaults.tailscale.auth_key": &d.Tailscale.AuthKey,
	}
}

// decryptSecrets replaces "enc:..." values with their plaintext.
func decryptSecrets(cfg *Config, passphrase string) error {
	for name, fp := range secretFields(cfg) {
		if !strings.HasPrefix(*fp, "enc:") {
			continue
		}
		decrypted, err := DecryptValue(strings.TrimPrefix(*fp, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*fp = decrypted
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// hex(salt) ":" hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
