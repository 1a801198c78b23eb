package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Flag struct {
	Key      string
	DefValue interface{}
}

type Config struct {
	Viper  *viper.Viper
	File   string
	Flags  map[string]Flag
	EnvPre string
}

func newConfig() *Config {
	return &Config{
		Viper: viper.New(),
		Flags: map[string]Flag{
			"log": {
				Key:      "log",
				DefValue: "WARNING",
			},
			"region": {
				Key:      "region",
				DefValue: "",
			},
			"endpoint": {
				Key:      "endpoint",
				DefValue: "",
			},
			"path-style": {
				Key:      "path_style",
				DefValue: false,
			},
			"addr": {
				Key:      "gateway.addr",
				DefValue: ":8000",
			},
			"db": {
				Key:      "gateway.db",
				DefValue: "copyit.db",
			},
		},
		EnvPre: "COPYIT",
	}
}

// Init reads the config file, if any, and turns on COPYIT_* environment
// overrides. Flags set on the command line win over both.
func (c *Config) Init() error {
	v := c.Viper
	v.SetEnvPrefix(c.EnvPre)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if c.File == "" {
		return nil
	}
	v.SetConfigFile(c.File)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", c.File)
	}
	return nil
}

// BindFlags binds every known flag present in fs to its config key.
func (c *Config) BindFlags(fs *pflag.FlagSet) error {
	for n, f := range c.Flags {
		flag := fs.Lookup(n)
		if flag == nil {
			continue
		}
		if err := c.Viper.BindPFlag(f.Key, flag); err != nil {
			return err
		}
		c.Viper.SetDefault(f.Key, f.DefValue)
	}
	return nil
}
