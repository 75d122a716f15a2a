package connpool

import (
	"fmt"
	"time"

	"github.com/go-i2p/go-connpool/backend"
	"github.com/go-i2p/go-connpool/internal"
	"github.com/go-i2p/go-connpool/pool"
	"github.com/samber/oops"
)

// Config is the file-level pool configuration.
// Integer fields keep the units of the configuration file keys.
type Config struct {
	// Driver selects the backend: mysql, sqlite3 or postgres
	// Default: mysql
	Driver string `toml:"driver" yaml:"driver"`

	// Host is the database server address (key "ip")
	Host string `toml:"ip" yaml:"ip"`

	// Port is the database server port
	Port int `toml:"port" yaml:"port"`

	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`

	// DBName is the database name, or the file path for sqlite3
	DBName string `toml:"dbname" yaml:"dbname"`

	// InitSize is the number of connections the pool keeps ready
	InitSize int `toml:"initSize" yaml:"initSize"`

	// MaxSize caps the number of live connections
	MaxSize int `toml:"maxSize" yaml:"maxSize"`

	// MaxIdleTime is the idle eviction threshold and maintenance period in seconds
	MaxIdleTime int `toml:"maxIdleTime" yaml:"maxIdleTime"`

	// ConnectionTimeout is the acquire timeout in milliseconds
	ConnectionTimeout int `toml:"connectionTimeOut" yaml:"connectionTimeOut"`

	// DialTimeout bounds connection establishment and liveness probes in milliseconds
	// Default: 3000
	DialTimeout int `toml:"dialTimeout" yaml:"dialTimeout"`

	// DialRetries is the number of extra attempts per connection establishment
	// Default: 0 (-1 = retry until the context is canceled)
	DialRetries int `toml:"dialRetries" yaml:"dialRetries"`
}

// NewConfig creates a Config with defaults for every key
func NewConfig() *Config {
	return &Config{
		Driver:            backend.DriverMySQL,
		Host:              "127.0.0.1",
		Port:              3306,
		InitSize:          10,
		MaxSize:           1024,
		MaxIdleTime:       60,
		ConnectionTimeout: 100,
		DialTimeout:       3000,
	}
}

// WithDriver sets the backend driver name
func (c *Config) WithDriver(driver string) *Config {
	c.Driver = driver
	return c
}

// WithAddress sets the database server host and port
func (c *Config) WithAddress(host string, port int) *Config {
	c.Host = host
	c.Port = port
	return c
}

// WithCredentials sets the login user and password
func (c *Config) WithCredentials(username, password string) *Config {
	c.Username = username
	c.Password = password
	return c
}

// WithDatabase sets the database name
func (c *Config) WithDatabase(dbname string) *Config {
	c.DBName = dbname
	return c
}

// WithSizes sets the target floor and the hard cap
func (c *Config) WithSizes(initSize, maxSize int) *Config {
	c.InitSize = initSize
	c.MaxSize = maxSize
	return c
}

// WithMaxIdleTime sets the idle threshold, truncated to whole seconds
func (c *Config) WithMaxIdleTime(d time.Duration) *Config {
	c.MaxIdleTime = int(d / time.Second)
	return c
}

// WithConnectionTimeout sets the acquire timeout, truncated to milliseconds
func (c *Config) WithConnectionTimeout(d time.Duration) *Config {
	c.ConnectionTimeout = int(d / time.Millisecond)
	return c
}

// WithDialTimeout sets the dial and probe timeout, truncated to milliseconds
func (c *Config) WithDialTimeout(d time.Duration) *Config {
	c.DialTimeout = int(d / time.Millisecond)
	return c
}

// WithDialRetries sets the number of extra dial attempts.
// Use 0 for no retries, -1 for infinite retries.
func (c *Config) WithDialRetries(retries int) *Config {
	c.DialRetries = retries
	return c
}

// PoolConfig converts the file-level settings to the pool's configuration
func (c *Config) PoolConfig() *pool.PoolConfig {
	pc := pool.DefaultPoolConfig()
	pc.InitSize = c.InitSize
	pc.MaxSize = c.MaxSize
	pc.MaxIdle = time.Duration(c.MaxIdleTime) * time.Second
	pc.AcquireTimeout = time.Duration(c.ConnectionTimeout) * time.Millisecond
	if c.DialTimeout > 0 {
		pc.ProbeTimeout = time.Duration(c.DialTimeout) * time.Millisecond
	}
	return pc
}

// BackendOptions converts the connection settings to backend options
func (c *Config) BackendOptions() backend.Options {
	return backend.Options{
		Driver:      c.Driver,
		Host:        c.Host,
		Port:        c.Port,
		Username:    c.Username,
		Password:    c.Password,
		DBName:      c.DBName,
		DialTimeout: time.Duration(c.DialTimeout) * time.Millisecond,
	}
}

// Fingerprint identifies the target and credentials without revealing them
func (c *Config) Fingerprint() string {
	return fmt.Sprintf("%016x", internal.Fingerprint(
		c.Driver, c.Host, fmt.Sprint(c.Port), c.Username, c.Password, c.DBName))
}

// String returns a printable form with the password redacted
func (c *Config) String() string {
	return fmt.Sprintf("%s://%s@%s:%d/%s (init=%d max=%d idle=%ds timeout=%dms)",
		c.Driver, c.Username, c.Host, c.Port, c.DBName,
		c.InitSize, c.MaxSize, c.MaxIdleTime, c.ConnectionTimeout)
}

// Validate checks if the configuration is valid and complete.
func (c *Config) Validate() error {
	if err := c.validateDriver(); err != nil {
		return err
	}

	if err := c.validateAddress(); err != nil {
		return err
	}

	if err := c.validateTimeouts(); err != nil {
		return err
	}

	return c.PoolConfig().Validate()
}

// validateDriver checks the driver is set
func (c *Config) validateDriver() error {
	if c.Driver == "" {
		return oops.
			Code("INVALID_CONFIG").
			In("config").
			Errorf("driver is required")
	}
	return nil
}

// validateAddress checks host and port for network drivers
func (c *Config) validateAddress() error {
	if c.Driver == backend.DriverSQLite {
		return nil
	}

	if c.Host == "" {
		return oops.
			Code("INVALID_CONFIG").
			In("config").
			With("driver", c.Driver).
			Errorf("ip is required for %s", c.Driver)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return oops.
			Code("INVALID_CONFIG").
			In("config").
			With("port", c.Port).
			Errorf("port must be between 1 and 65535")
	}
	return nil
}

// validateTimeouts checks the time-valued keys are non-negative
func (c *Config) validateTimeouts() error {
	if c.MaxIdleTime < 0 || c.ConnectionTimeout < 0 || c.DialTimeout < 0 {
		return oops.
			Code("INVALID_CONFIG").
			In("config").
			With("max_idle_time", c.MaxIdleTime).
			With("connection_timeout", c.ConnectionTimeout).
			With("dial_timeout", c.DialTimeout).
			Errorf("timeouts must be non-negative")
	}

	if c.DialRetries < -1 {
		return oops.
			Code("INVALID_CONFIG").
			In("config").
			With("dial_retries", c.DialRetries).
			Errorf("dial retries must be >= -1 (-1 = infinite, 0 = no retries)")
	}
	return nil
}
