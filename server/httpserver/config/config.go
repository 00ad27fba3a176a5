package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/THPTUHA/iclocksim/server/messaging"
	"github.com/THPTUHA/iclocksim/server/storage"
	"github.com/hashicorp/go-sockaddr/template"
	flag "github.com/spf13/pflag"
)

const DefaultHTTPAddr = ":5122"

type Configs struct {
	// HTTPAddr is where the iclock endpoint listens. go-sockaddr templates
	// such as "{{ GetPrivateIP }}:5122" are resolved at start.
	HTTPAddr string `mapstructure:"http-addr" yaml:"http-addr"`

	// LogLevel comes from the global log-level setting.
	LogLevel string `mapstructure:"-" yaml:"-"`

	// Timezone used to read device timestamps, which carry no offset.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	Storage storage.Config       `mapstructure:"storage" yaml:"storage"`
	Nats    messaging.NatsConfig `mapstructure:"nats" yaml:"nats"`
}

func DefaultConfig() *Configs {
	return &Configs{
		HTTPAddr: DefaultHTTPAddr,
		LogLevel: "info",
		Timezone: "Local",
		Storage:  storage.DefaultConfig(),
		Nats:     messaging.DefaultNatsConfig(),
	}
}

// ConfigFlagSet returns the server flags, named after their viper keys
// below the "server" prefix.
func ConfigFlagSet() *flag.FlagSet {
	c := DefaultConfig()
	cmdFlags := flag.NewFlagSet("server flagset", flag.ContinueOnError)
	cmdFlags.String("http-addr", c.HTTPAddr,
		"Address the iclock endpoint listens on, go-sockaddr templates allowed")
	cmdFlags.String("timezone", c.Timezone,
		"Timezone of device timestamps")
	cmdFlags.String("storage.driver", c.Storage.Driver,
		"Record store: bolt, memory, postgres or mysql")
	cmdFlags.String("storage.path", c.Storage.Path,
		"Bolt database file")
	cmdFlags.String("storage.dsn", c.Storage.DSN,
		"SQL connection string")
	cmdFlags.String("nats.url", c.Nats.URL,
		"NATS server to publish received records to, empty to disable")
	return cmdFlags
}

// NormalizeAddr resolves a go-sockaddr template in HTTPAddr.
func (c *Configs) NormalizeAddr() error {
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
		return nil
	}
	if !strings.Contains(c.HTTPAddr, "{{") {
		return nil
	}
	ipStr, err := ParseSingleIPTemplate(c.HTTPAddr)
	if err != nil {
		return fmt.Errorf("HTTP address resolution failed: %v", err)
	}
	c.HTTPAddr = ipStr
	return nil
}

func ParseSingleIPTemplate(ipTmpl string) (string, error) {
	out, err := template.Parse(ipTmpl)
	if err != nil {
		return "", fmt.Errorf("unable to parse address template %q: %v", ipTmpl, err)
	}

	ips := strings.Fields(out)
	switch len(ips) {
	case 0:
		return "", errors.New("no addresses found, please configure one")
	case 1:
		return ips[0], nil
	default:
		return "", fmt.Errorf("multiple addresses found (%q), please configure one", out)
	}
}
