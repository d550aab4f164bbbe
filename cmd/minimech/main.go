package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "minimech",
		Short: "A minimal headless browser and HTML scraping toolkit",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests and redirects")

	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newSelectCmd())
	rootCmd.AddCommand(newTreeCmd())
	rootCmd.AddCommand(newCharsetCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
