package cmd

import (
	"fmt"

	"github.com/THPTUHA/iclocksim/server/httpserver/config"
	"github.com/THPTUHA/iclocksim/simulator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// Configs is the layout of the config file, environment (ICLOCK_ prefix)
// and flags once merged by viper.
type Configs struct {
	LogLevel  string            `mapstructure:"log-level" yaml:"log-level"`
	Simulator *simulator.Config `mapstructure:"simulator" yaml:"simulator"`
	Server    *config.Configs   `mapstructure:"server" yaml:"server"`
	Records   *RecordsConfig    `mapstructure:"records" yaml:"records"`
}

func loadConfig() (*Configs, error) {
	conf := &Configs{
		LogLevel:  "info",
		Simulator: simulator.DefaultConfig(),
		Server:    config.DefaultConfig(),
		Records:   defaultRecordsConfig(),
	}
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}
	conf.Server.LogLevel = conf.LogLevel
	return conf, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := configDump(cmd)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	iclocksimCmd.AddCommand(configCmd)
	configCmd.Flags().AddFlagSet(simulator.ConfigFlagSet())
}

func configDump(cmd *cobra.Command) (string, error) {
	sim, err := loadSimulatorConfig(cmd)
	if err != nil {
		return "", err
	}
	srv, err := loadServerConfig(cmd)
	if err != nil {
		return "", err
	}
	rc, err := loadRecordsConfig(cmd)
	if err != nil {
		return "", err
	}
	d, err := yaml.Marshal(&Configs{
		LogLevel:  srv.LogLevel,
		Simulator: sim,
		Server:    srv,
		Records:   rc,
	})
	if err != nil {
		return "", err
	}
	return string(d), nil
}
