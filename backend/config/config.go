package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "SYNCWATCH"

	keyAPIListenAddr    = "api-listen-addr"
	keyWSListenAddr     = "ws-listen-addr"
	keyLogLevel         = "log-level"
	keyGracePeriod      = "grace-period"
	keyCORSOrigins      = "cors-origins"
	keyChannelBuffer    = "channel-buffer"
	keyMaxMessageLength = "max-message-length"
	keyEnvFile          = "env-file"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	APIListenAddr    string
	WSListenAddr     string
	LogLevel         string
	GracePeriod      time.Duration
	CORSOrigins      []string
	ChannelBuffer    int
	MaxMessageLength int
}

// Load resolves configuration from command line, SYNCWATCH_* environment and
// optional env file, in this order of precedence.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("syncwatch", pflag.ContinueOnError)
	flags.StringP(keyAPIListenAddr, "a", ":3000", "api listen address")
	flags.StringP(keyWSListenAddr, "w", ":8888", "websocket event channel listen address")
	flags.StringP(keyLogLevel, "l", "info", "log level")
	flags.Duration(keyGracePeriod, 10*time.Second, "how long disconnected client keeps room membership")
	flags.StringSlice(keyCORSOrigins, []string{"*"}, "allowed CORS origins")
	flags.Int(keyChannelBuffer, 64, "outbound event buffer per client channel")
	flags.Int(keyMaxMessageLength, 500, "chat message length limit in characters")
	flags.String(keyEnvFile, ".env", "optional env file")
	if err := flags.Parse(args); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("cannot bind flags: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := loadEnvFile(v, v.GetString(keyEnvFile)); err != nil {
		return nil, err
	}

	cfg := &Config{
		APIListenAddr:    v.GetString(keyAPIListenAddr),
		WSListenAddr:     v.GetString(keyWSListenAddr),
		LogLevel:         v.GetString(keyLogLevel),
		GracePeriod:      v.GetDuration(keyGracePeriod),
		CORSOrigins:      splitList(v.GetStringSlice(keyCORSOrigins)),
		ChannelBuffer:    v.GetInt(keyChannelBuffer),
		MaxMessageLength: v.GetInt(keyMaxMessageLength),
	}
	return cfg, cfg.validate()
}

// loadEnvFile puts SYNCWATCH_* entries of env file below real environment.
func loadEnvFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Join(ErrInvalidConfig, fmt.Errorf("cannot read env file: %w", err))
	}
	for name, val := range env {
		key, ok := strings.CutPrefix(name, envPrefix+"_")
		if !ok {
			continue
		}
		v.SetDefault(strings.ReplaceAll(strings.ToLower(key), "_", "-"), val)
	}
	return nil
}

func (cfg *Config) validate() error {
	var errs []error
	if cfg.GracePeriod <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyGracePeriod))
	}
	if cfg.ChannelBuffer <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyChannelBuffer))
	}
	if cfg.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyMaxMessageLength))
	}
	if len(cfg.CORSOrigins) == 0 {
		errs = append(errs, fmt.Errorf("%s must not be empty", keyCORSOrigins))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
