package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/decimal-ipc/dscipc/pkg/log"
	"github.com/decimal-ipc/dscipc/pkg/rpc"
)

const (
	configDirPathEnv     = "DSCIPC_CONFIG_DIR_PATH"
	defaultConfigDirPath = "."
)

// Config represents the CLI configuration, read from the environment and an
// optional .env file.
type Config struct {
	EncryptionKey   string        `env:"ENCRYPTION_KEY" env-required:"true"`
	SocketPath      string        `env:"SOCKET_PATH" env-default:"/tmp/decimal_ipc.sock"`
	CallTimeout     time.Duration `env:"IPC_CALL_TIMEOUT" env-default:"30s"`
	DialTimeout     time.Duration `env:"IPC_DIAL_TIMEOUT" env-default:"5s"`
	MaxResponseSize int64         `env:"IPC_MAX_RESPONSE_SIZE" env-default:"65536"`
	WalletID        string        `env:"WALLET_ID"` // random per run when empty

	Log log.Config
}

// DialerConfig returns the transport settings.
func (c *Config) DialerConfig() rpc.UnixDialerConfig {
	return rpc.UnixDialerConfig{
		SocketPath:      c.SocketPath,
		DialTimeout:     c.DialTimeout,
		MaxResponseSize: c.MaxResponseSize,
	}
}

// dotEnvPath is the .env file inside DSCIPC_CONFIG_DIR_PATH.
func dotEnvPath() string {
	configDirPath := os.Getenv(configDirPathEnv)
	if configDirPath == "" {
		configDirPath = defaultConfigDirPath
	}
	return filepath.Join(configDirPath, ".env")
}

// loadDotEnv exports the variables of the .env file that are not already
// set. A missing file is not an error.
func loadDotEnv() error {
	path := dotEnvPath()
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "failed to load %s", path)
	}
	return nil
}

// LoadLogConfig reads only the logging settings, so commands that need no
// encryption key can still log.
func LoadLogConfig() (log.Config, error) {
	var conf log.Config
	if err := loadDotEnv(); err != nil {
		return conf, err
	}
	if err := cleanenv.ReadEnv(&conf); err != nil {
		return conf, errors.Wrap(err, "failed to read log config")
	}
	return conf, nil
}

// LoadConfig builds configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var conf Config
	if err := cleanenv.ReadEnv(&conf); err != nil {
		return nil, errors.Wrap(err, "failed to read env")
	}

	if conf.EncryptionKey == "" {
		return nil, errors.New("ENCRYPTION_KEY must not be empty")
	}
	if conf.CallTimeout < 0 {
		return nil, errors.Errorf("invalid IPC_CALL_TIMEOUT %s", conf.CallTimeout)
	}
	if conf.DialTimeout < 0 {
		return nil, errors.Errorf("invalid IPC_DIAL_TIMEOUT %s", conf.DialTimeout)
	}
	if conf.MaxResponseSize <= 0 {
		return nil, errors.Errorf("invalid IPC_MAX_RESPONSE_SIZE %d", conf.MaxResponseSize)
	}

	return &conf, nil
}
