// Package config loads the optional .hostprep.yaml configuration file.
//
// Everything in it has a default, so the tool runs with no config file
// at all; the file exists so operators can pin the service group, the
// sshd config location, and the downstream integration paths instead of
// repeating flags.
package config

import (
	"os"
	"path/filepath"

	"github.com/hostprep/hostprep/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".hostprep.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/hostprep"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Config represents the complete .hostprep.yaml configuration file.
type Config struct {
	// Group is the service group the deploy user is added to.
	Group string `yaml:"group" mapstructure:"group"`

	// SSHConfigPath is the sshd configuration file to rewrite.
	SSHConfigPath string `yaml:"ssh_config_path" mapstructure:"ssh_config_path"`

	// AppendKeys is the authorized_keys append policy: "always" or "if-absent".
	AppendKeys string `yaml:"append_keys" mapstructure:"append_keys"`

	// Downstream integration files, passed through to the deployed
	// workload's tooling. Provisioning never reads them.
	Fail2banConfig string `yaml:"fail2ban_config" mapstructure:"fail2ban_config"`
	CowrieConfig   string `yaml:"cowrie_config" mapstructure:"cowrie_config"`
	CowrieDB       string `yaml:"cowrie_db" mapstructure:"cowrie_db"`
	CowrieSSHPort  int    `yaml:"cowrie_ssh_port" mapstructure:"cowrie_ssh_port"`
	CronFile       string `yaml:"cron_file" mapstructure:"cron_file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Group:          "docker",
		SSHConfigPath:  "/etc/ssh/sshd_config",
		AppendKeys:     "always",
		Fail2banConfig: "./fail2ban.conf",
		CowrieConfig:   "./cowrie.conf",
		CowrieDB:       "./cowrie.db",
		CowrieSSHPort:  22,
		CronFile:       "./cron.conf",
	}
}

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found: "+path,
				"Run 'hostprep init' to create one, or drop the --config flag.")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML.")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid configuration in "+path,
			"Check the field types in the config file.")
	}
	return cfg, nil
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .hostprep.yaml in the current directory
// 3. ~/.config/hostprep/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct.")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions.")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions.")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if home, _ := os.UserHomeDir(); home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults
// if no config file exists.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("group", d.Group)
	v.SetDefault("ssh_config_path", d.SSHConfigPath)
	v.SetDefault("append_keys", d.AppendKeys)
	v.SetDefault("fail2ban_config", d.Fail2banConfig)
	v.SetDefault("cowrie_config", d.CowrieConfig)
	v.SetDefault("cowrie_db", d.CowrieDB)
	v.SetDefault("cowrie_ssh_port", d.CowrieSSHPort)
	v.SetDefault("cron_file", d.CronFile)
}
