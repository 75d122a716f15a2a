package connpool

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// LoadConfigFile reads a configuration file. Files ending in .toml, .yaml
// or .yml are decoded with the matching format; anything else is read as
// flat key=value lines. Keys missing from the file keep NewConfig defaults.
func LoadConfigFile(path string) (*Config, error) {
	cfg := NewConfig()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err = toml.DecodeFile(path, cfg)
	case ".yaml", ".yml":
		err = decodeYAMLFile(path, cfg)
	default:
		err = decodeFlatFile(path, cfg)
	}
	if err != nil {
		return nil, oops.
			Code("CONFIG_READ_FAILED").
			In("config").
			With("path", path).
			Wrapf(err, "failed to load configuration file")
	}

	log.WithField("path", path).Debug("configuration loaded")
	return cfg, nil
}

func decodeYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func decodeFlatFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return parseFlat(f, cfg)
}

// ParseConfig reads flat key=value configuration. Blank lines and lines
// starting with # are skipped, unknown keys are ignored and integer values
// that do not parse become 0.
func ParseConfig(r io.Reader) (*Config, error) {
	cfg := NewConfig()
	if err := parseFlat(r, cfg); err != nil {
		return nil, oops.
			Code("CONFIG_READ_FAILED").
			In("config").
			Wrapf(err, "failed to parse configuration")
	}
	return cfg, nil
}

func parseFlat(r io.Reader, cfg *Config) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		cfg.set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return scanner.Err()
}

// set assigns one recognized key
func (c *Config) set(key, value string) {
	switch key {
	case "driver":
		c.Driver = value
	case "ip":
		c.Host = value
	case "port":
		c.Port = atoi(value)
	case "username":
		c.Username = value
	case "password":
		c.Password = value
	case "dbname":
		c.DBName = value
	case "initSize":
		c.InitSize = atoi(value)
	case "maxSize":
		c.MaxSize = atoi(value)
	case "maxIdleTime":
		c.MaxIdleTime = atoi(value)
	case "connectionTimeOut":
		c.ConnectionTimeout = atoi(value)
	case "dialTimeout":
		c.DialTimeout = atoi(value)
	case "dialRetries":
		c.DialRetries = atoi(value)
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
