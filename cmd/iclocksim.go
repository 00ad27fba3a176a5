package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var configFile string

var iclocksimCmd = &cobra.Command{
	Use:   "iclocksim",
	Short: "Attendance terminal simulator for ADMS iclock servers",
	Long: `Emulates a biometric attendance terminal: a handshake followed by swipe
pushes to an ADMS iclock endpoint. Without a subcommand the default
simulation is run.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simulateRun(cmd)
	},
}

func Execute() {
	if err := iclocksimCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	iclocksimCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml)")
	iclocksimCmd.PersistentFlags().String("log-level", "info", "debug|info|warn|error")

	iclocksimCmd.Flags().AddFlagSet(simulatorFlags())
}

func initConfig() {
	viper.SetEnvPrefix("ICLOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if configFile == "" {
		return
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("cannot read config")
		os.Exit(1)
	}
	log.Debug().Str("file", viper.ConfigFileUsed()).Msg("config loaded")
}

// bindFlags binds log-level and the named flags of fs to the viper keys
// log-level and prefix.name. It runs inside RunE so only the flags of the
// executing command are bound.
func bindFlags(fs *flag.FlagSet, prefix string, names []string) error {
	if f := fs.Lookup("log-level"); f != nil {
		if err := viper.BindPFlag("log-level", f); err != nil {
			return err
		}
	}
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(prefix+"."+name, f); err != nil {
			return err
		}
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func flagNames(fs *flag.FlagSet) []string {
	names := make([]string, 0)
	fs.VisitAll(func(f *flag.Flag) {
		names = append(names, f.Name)
	})
	return names
}
