package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string        `mapstructure:"port"`
	LogLevel string        `mapstructure:"log_level"`
	LogFmt   string        `mapstructure:"log_format"`
	Mongo    MongoConfig   `mapstructure:"mongo"`
	Chains   []EthConfig   `mapstructure:"chains"`
	ENSChain string        `mapstructure:"ens_chain"` // chain whose provider answers ENS queries
	Cipher   CipherConfig  `mapstructure:"cipher"`
	Confirm  ConfirmConfig `mapstructure:"confirm"`

	Secrets Secrets `mapstructure:"-"`
}

type MongoConfig struct {
	Database string `mapstructure:"database"`
}

type EthConfig struct {
	Name      string `mapstructure:"name"` // ethereum / sepolia / base …
	Symbol    string `mapstructure:"symbol"`
	RPC       string `mapstructure:"rpc"`
	TestToken string `mapstructure:"test_token"` // appended to RPC, e.g. an Alchemy key path
	ChainID   int64  `mapstructure:"chain_id"`
	MainNet   bool   `mapstructure:"main_net"`
}

type CipherConfig struct {
	ScryptN int `mapstructure:"scrypt_n"`
}

type ConfirmConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Secrets are read from the environment only so they never sit in YAML.
type Secrets struct {
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" required:"true"`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
}

const secretsPrefix = "WALLET"

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// ENV overrides YAML
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process(secretsPrefix, &cfg.Secrets); err != nil {
		return nil, fmt.Errorf("failed to process secrets: %w", err)
	}
	if strings.TrimSpace(cfg.Secrets.EncryptionKey) == "" {
		return nil, fmt.Errorf("config: %s_ENCRYPTION_KEY is empty", secretsPrefix)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("mongo.database", "wallet_service")
	v.SetDefault("ens_chain", "ethereum")
	v.SetDefault("cipher.scrypt_n", 1<<15)
	v.SetDefault("confirm.poll_interval", 2*time.Second)
	v.SetDefault("confirm.timeout", 5*time.Minute)
}

func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("config: at least one chain is required")
	}
	seen := make(map[string]struct{}, len(c.Chains))
	for _, ch := range c.Chains {
		if ch.Name == "" || ch.RPC == "" {
			return fmt.Errorf("config: chain entries need name and rpc")
		}
		if _, dup := seen[ch.Name]; dup {
			return fmt.Errorf("config: duplicate chain %q", ch.Name)
		}
		seen[ch.Name] = struct{}{}
	}
	if _, ok := seen[c.ENSChain]; !ok {
		return fmt.Errorf("config: ens_chain %q is not a configured chain", c.ENSChain)
	}
	if c.Cipher.ScryptN < 2 || c.Cipher.ScryptN > 1<<20 || c.Cipher.ScryptN&(c.Cipher.ScryptN-1) != 0 {
		return fmt.Errorf("config: cipher.scrypt_n must be a power of two in [2, 1048576]")
	}
	return nil
}
