package connpool

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatConfig = `# connection pool configuration
ip=127.0.0.1
port=3306
username=pool_user
password=PoolPassword123!
dbname=my_project_db

initSize=10
maxSize=1024
maxIdleTime=60
connectionTimeOut=100
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig(strings.NewReader(flatConfig))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", config.Host)
	assert.Equal(t, 3306, config.Port)
	assert.Equal(t, "pool_user", config.Username)
	assert.Equal(t, "PoolPassword123!", config.Password)
	assert.Equal(t, "my_project_db", config.DBName)
	assert.Equal(t, 10, config.InitSize)
	assert.Equal(t, 1024, config.MaxSize)
	assert.Equal(t, 60, config.MaxIdleTime)
	assert.Equal(t, 100, config.ConnectionTimeout)
}

func TestParseConfigEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, c *Config)
	}{
		{
			name:  "windows line endings and padding",
			input: "ip = 10.1.1.1 \r\nport=3307\r\n",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "10.1.1.1", c.Host)
				assert.Equal(t, 3307, c.Port)
			},
		},
		{
			name:  "unparsable integers become zero",
			input: "initSize=ten\nmaxSize=\nmaxIdleTime=1.5\n",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 0, c.InitSize)
				assert.Equal(t, 0, c.MaxSize)
				assert.Equal(t, 0, c.MaxIdleTime)
			},
		},
		{
			name:  "unknown keys and lines without equals are ignored",
			input: "colour=blue\njust some text\nusername=u\n",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "u", c.Username)
			},
		},
		{
			name:  "value may contain equals",
			input: "password=a=b=c\n",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "a=b=c", c.Password)
			},
		},
		{
			name:  "comments and blank lines",
			input: "# ip=1.1.1.1\n\n   \n  # port=1\n",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, NewConfig().Host, c.Host)
				assert.Equal(t, NewConfig().Port, c.Port)
			},
		},
		{
			name:  "extension keys",
			input: "driver=sqlite3\ndialTimeout=500\ndialRetries=-1\n",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "sqlite3", c.Driver)
				assert.Equal(t, 500, c.DialTimeout)
				assert.Equal(t, -1, c.DialRetries)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseConfig(strings.NewReader(tt.input))
			require.NoError(t, err)
			tt.check(t, config)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"flat ini", "mysql.ini", flatConfig},
		{
			"toml", "pool.toml", `
ip = "127.0.0.1"
port = 3306
username = "pool_user"
password = "PoolPassword123!"
dbname = "my_project_db"
initSize = 10
maxSize = 1024
maxIdleTime = 60
connectionTimeOut = 100
`,
		},
		{
			"yaml", "pool.yaml", `
ip: 127.0.0.1
port: 3306
username: pool_user
password: PoolPassword123!
dbname: my_project_db
initSize: 10
maxSize: 1024
maxIdleTime: 60
connectionTimeOut: 100
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfigFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, "127.0.0.1", config.Host)
			assert.Equal(t, 3306, config.Port)
			assert.Equal(t, "pool_user", config.Username)
			assert.Equal(t, "PoolPassword123!", config.Password)
			assert.Equal(t, "my_project_db", config.DBName)
			assert.Equal(t, 10, config.InitSize)
			assert.Equal(t, 1024, config.MaxSize)
			assert.Equal(t, 60, config.MaxIdleTime)
			assert.Equal(t, 100, config.ConnectionTimeout)
			assert.NoError(t, config.Validate())
		})
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		config, err := LoadConfigFile(filepath.Join(t.TempDir(), "mysql.ini"))
		require.Error(t, err)
		assert.Nil(t, config)

		oopsErr, ok := err.(oops.OopsError)
		require.True(t, ok)
		assert.Equal(t, "CONFIG_READ_FAILED", oopsErr.Code())
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := LoadConfigFile(writeFile(t, "pool.toml", "port = \"not a number\""))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfigFile(writeFile(t, "pool.yml", "port: [1, 2"))
		assert.Error(t, err)
	})
}
