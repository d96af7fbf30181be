package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netsim/netsim"
)

var describeCmd = &cobra.Command{
	Use:   "describe [config.yaml]",
	Short: "Parse a YAML configuration file and print its structured Value tree",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			logrus.Fatalf("reading %s: %v", args[0], err)
		}
		value, err := netsim.LoadConfigurationFile(data)
		if err != nil {
			logrus.Fatalf("parsing %s: %v", args[0], err)
		}
		fmt.Println(value.String())
	},
}
