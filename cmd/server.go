package cmd

import (
	"github.com/THPTUHA/iclocksim/server/httpserver"
	"github.com/THPTUHA/iclocksim/server/httpserver/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run an ADMS iclock receiver that stores pushed attendance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serverRun(cmd)
	},
}

func init() {
	iclocksimCmd.AddCommand(serverCmd)
	serverCmd.Flags().AddFlagSet(config.ConfigFlagSet())
}

func loadServerConfig(cmd *cobra.Command) (*config.Configs, error) {
	if err := bindFlags(cmd.Flags(), "server", flagNames(config.ConfigFlagSet())); err != nil {
		return nil, err
	}
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return conf.Server, nil
}

func serverRun(cmd *cobra.Command) error {
	conf, err := loadServerConfig(cmd)
	if err != nil {
		return err
	}
	server, err := httpserver.NewHTTPServer(conf)
	if err != nil {
		log.Error().Err(err).Msg("Server is not running!")
		return err
	}

	log.Info().Str("addr", conf.HTTPAddr).Str("storage", conf.Storage.Driver).Msg("Starting the server...")
	return server.Start(commandContext(cmd))
}
