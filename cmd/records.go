package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/THPTUHA/iclocksim/pkg/logger"
	"github.com/THPTUHA/iclocksim/server/httpserver/config"
	"github.com/THPTUHA/iclocksim/server/storage"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

type RecordsConfig struct {
	// DeviceSN limits the listing to one device, empty for all.
	DeviceSN string `mapstructure:"device" yaml:"device"`

	Limit int `mapstructure:"limit" yaml:"limit"`
}

func defaultRecordsConfig() *RecordsConfig {
	return &RecordsConfig{Limit: storage.DefaultLimit}
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List attendance records stored by the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordsRun(cmd)
	},
}

func init() {
	iclocksimCmd.AddCommand(recordsCmd)
	recordsCmd.Flags().AddFlagSet(config.ConfigFlagSet())
	recordsCmd.Flags().AddFlagSet(recordsFlagSet())
}

func recordsFlagSet() *flag.FlagSet {
	c := defaultRecordsConfig()
	cmdFlags := flag.NewFlagSet("records flagset", flag.ContinueOnError)
	cmdFlags.String("device", c.DeviceSN, "Only records of this device serial")
	cmdFlags.Int("limit", c.Limit, "Maximum records to list")
	return cmdFlags
}

func loadRecordsConfig(cmd *cobra.Command) (*RecordsConfig, error) {
	if err := bindFlags(cmd.Flags(), "records", flagNames(recordsFlagSet())); err != nil {
		return nil, err
	}
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return conf.Records, nil
}

func recordsRun(cmd *cobra.Command) error {
	conf, err := loadServerConfig(cmd)
	if err != nil {
		return err
	}
	rc, err := loadRecordsConfig(cmd)
	if err != nil {
		return err
	}
	store, err := storage.Open(conf.Storage, logger.InitLogger(conf.LogLevel, "records"))
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.ListRecords(commandContext(cmd), storage.RecordQuery{
		DeviceSN: rc.DeviceSN,
		Limit:    rc.Limit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SN\tUSER\tTIME\tSTATUS\tVERIFY\tWORKCODE")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.DeviceSN, r.UserID, r.Timestamp.Format(adms.TimeLayout), r.Status, r.VerifyMode, r.WorkCode)
	}
	return w.Flush()
}
