package simulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/THPTUHA/iclocksim/pkg/helper"
	flag "github.com/spf13/pflag"
)

const (
	DefaultServerURL = "http://localhost:5122/iclock/cdata"
	DefaultDeviceSN  = "SIMULATOR_001"
	DefaultInterval  = 2 * time.Second
)

type Config struct {
	// ServerURL is the iclock cdata endpoint of the ADMS server.
	ServerURL string `mapstructure:"server-url" yaml:"server-url"`

	// DeviceSN identifies the simulated terminal to the server.
	DeviceSN string `mapstructure:"sn" yaml:"sn"`

	// Users are pushed in order, one swipe each.
	Users []string `mapstructure:"users" yaml:"users"`

	// Interval is the pause between two consecutive pushes.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// Timeout bounds a single HTTP exchange. Zero leaves the client default.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

var (
	ErrNoServerURL = errors.New("simulator: empty server url")
	ErrNoUsers     = errors.New("simulator: no users to push")
)

func DefaultConfig() *Config {
	return &Config{
		ServerURL: DefaultServerURL,
		DeviceSN:  DefaultDeviceSN,
		Users:     []string{"101", "102"},
		Interval:  DefaultInterval,
	}
}

func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return ErrNoServerURL
	}
	if ok, why := helper.IsSerial(c.DeviceSN); !ok {
		return fmt.Errorf("simulator: invalid device serial %q (offending %q)", c.DeviceSN, why)
	}
	if len(c.Users) == 0 {
		return ErrNoUsers
	}
	if c.Interval < 0 {
		return fmt.Errorf("simulator: negative interval %s", c.Interval)
	}
	return nil
}

// ConfigFlagSet returns the simulator flags. Names match the mapstructure
// keys so they can be bound into viper under the "simulator" prefix.
func ConfigFlagSet() *flag.FlagSet {
	c := DefaultConfig()
	cmdFlags := flag.NewFlagSet("simulator flagset", flag.ContinueOnError)
	cmdFlags.String("server-url", c.ServerURL,
		"ADMS cdata endpoint to push to")
	cmdFlags.String("sn", c.DeviceSN,
		"Serial number the simulated device reports")
	cmdFlags.StringSlice("users", c.Users,
		"User ids to swipe, in order")
	cmdFlags.Duration("interval", c.Interval,
		"Pause between two swipes")
	cmdFlags.Duration("timeout", c.Timeout,
		"Timeout of a single request, 0 for none")
	return cmdFlags
}
