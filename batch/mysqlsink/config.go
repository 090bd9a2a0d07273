package mysqlsink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DBConfig defines MySQL connection parameters for the sink.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// PasswordEnv names an environment variable holding the password; it
	// takes precedence over Password so credentials stay out of config files.
	PasswordEnv string `yaml:"password_env"`

	Database string            `yaml:"database"`
	Params   map[string]string `yaml:"params"`
}

func (c DBConfig) password() string {
	if c.PasswordEnv != "" {
		return os.Getenv(c.PasswordEnv)
	}
	return c.Password
}

func (c DBConfig) dsn() string {
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	params := map[string]string{
		"parseTime": "true",
		"charset":   "utf8mb4",
	}
	for k, v := range c.Params {
		params[k] = v
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.User,
		c.password(),
		host,
		port,
		c.Database,
		strings.Join(parts, "&"),
	)
}

// Open connects to MySQL and verifies the connection.
func (c DBConfig) Open(ctx context.Context) (*sql.DB, error) {
	if c.User == "" {
		return nil, fmt.Errorf("db user is required")
	}
	if c.Database == "" {
		return nil, fmt.Errorf("db database is required")
	}
	db, err := sql.Open("mysql", c.dsn())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SinkConfig configures import of one merged artifact into a MySQL table.
type SinkConfig struct {
	TargetTable string
	Replace     bool
	BatchSize   int
}

func (c *SinkConfig) WithDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 2000
	}
}

func quoteIdentifier(s string) (string, error) {
	if !identifierRe.MatchString(s) {
		return "", fmt.Errorf("invalid identifier: %s", s)
	}
	return "`" + s + "`", nil
}
