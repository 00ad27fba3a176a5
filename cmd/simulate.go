package cmd

import (
	"github.com/THPTUHA/iclocksim/pkg/logger"
	"github.com/THPTUHA/iclocksim/simulator"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the handshake and swipe sequence",
	Long: `Sends a handshake, then one swipe per configured user with a pause in
between. Push failures are reported but never change the exit code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return simulateRun(cmd)
	},
}

func init() {
	iclocksimCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().AddFlagSet(simulatorFlags())
}

func simulatorFlags() *flag.FlagSet {
	return simulator.ConfigFlagSet()
}

func loadSimulatorConfig(cmd *cobra.Command) (*simulator.Config, error) {
	if err := bindFlags(cmd.Flags(), "simulator", flagNames(simulator.ConfigFlagSet())); err != nil {
		return nil, err
	}
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return conf.Simulator, conf.Simulator.Validate()
}

func simulateRun(cmd *cobra.Command) error {
	conf, err := loadSimulatorConfig(cmd)
	if err != nil {
		return err
	}

	sim := simulator.New(conf, cmd.OutOrStdout(), logger.InitLogger(viper.GetString("log-level"), "simulator"))
	summary := sim.Run(commandContext(cmd))
	log.Debug().
		Int("pushed", len(summary.Pushes)).
		Int("failed", summary.Failed()).
		Msg("simulator done")
	return nil
}
