package connect

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"

	"order-etl/internal/dialect"
)

// DefaultPrefix is the environment variable prefix used when none is configured.
const DefaultPrefix = "POSTGRES"

// Keys are the required connection settings, in reporting order.
var Keys = []string{"USER", "PASSWORD", "HOST", "PORT", "DATABASE"}

// ConnectionConfig holds the resolved destination connection parameters.
type ConnectionConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
}

// Info converts the config to the dialect's connection parameters.
func (c ConnectionConfig) Info() dialect.ConnInfo {
	return dialect.ConnInfo{
		User:     c.User,
		Password: c.Password,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
	}
}

// String renders the config without the password.
func (c ConnectionConfig) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

// Defaults holds fallback values keyed by the unprefixed setting name
// (USER, PASSWORD, ...). A nil map means no fallback.
type Defaults map[string]string

// DemoDefaults returns the local demo settings for d.
func DemoDefaults(d dialect.Dialect) Defaults {
	return Defaults{
		"USER":     "etl_user",
		"PASSWORD": "etl_password",
		"HOST":     "127.0.0.1",
		"PORT":     cast.ToString(d.DefaultPort()),
		"DATABASE": "etl_db",
	}
}

// LookupFunc reads one setting; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ResolveConfig reads <prefix>_USER, _PASSWORD, _HOST, _PORT and _DATABASE
// through lookup, falling back to defaults. Every unset or empty key is
// reported in one *ConfigError, as is a non-numeric port.
func ResolveConfig(prefix string, lookup LookupFunc, defaults Defaults) (ConnectionConfig, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	prefix = strings.ToUpper(strings.TrimSuffix(prefix, "_"))

	values := make(map[string]string, len(Keys))
	cfgErr := &ConfigError{}
	for _, key := range Keys {
		name := prefix + "_" + key
		v, _ := lookup(name)
		v = strings.TrimSpace(v)
		if v == "" {
			v = defaults[key]
		}
		if v == "" {
			cfgErr.Missing = append(cfgErr.Missing, name)
			continue
		}
		values[key] = v
	}

	var port int
	if raw, ok := values["PORT"]; ok {
		p, err := cast.ToIntE(raw)
		if err != nil || p <= 0 || p > 65535 {
			cfgErr.Invalid = append(cfgErr.Invalid, prefix+"_PORT")
		}
		port = p
	}

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return ConnectionConfig{}, cfgErr
	}

	return ConnectionConfig{
		User:     values["USER"],
		Password: values["PASSWORD"],
		Host:     values["HOST"],
		Port:     port,
		Database: values["DATABASE"],
	}, nil
}
