package util

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const Name = "trollianspace"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host           string
		HttpPort       int    `yaml:"httpPort"`
		SslDomain      string `yaml:"sslDomain"`
		WithFederation bool   `yaml:"withFederation"`
		DbFile         string `yaml:"dbFile"`
	}
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	buf, err := os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Infof("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		// Try to write default config to user config directory
		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Warnf("Could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Infof("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("TROLLIAN_HOST")
	envHttpPort := os.Getenv("TROLLIAN_HTTPPORT")
	envSslDomain := os.Getenv("TROLLIAN_SSLDOMAIN")
	envWithFederation := os.Getenv("TROLLIAN_WITH_FEDERATION")
	envDbFile := os.Getenv("TROLLIAN_DBFILE")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			log.Warnf("Invalid TROLLIAN_HTTPPORT: %v", err)
		} else {
			c.Conf.HttpPort = v
		}
	}

	if envSslDomain != "" {
		c.Conf.SslDomain = envSslDomain
	}

	if envWithFederation == "true" {
		c.Conf.WithFederation = true
	}

	if envDbFile != "" {
		c.Conf.DbFile = envDbFile
	}

	if c.Conf.DbFile == "" {
		c.Conf.DbFile = "database.db"
	}

	return c, nil
}
