package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docwire-probe",
	Short: "ingest a file or archive and report what the pipeline saw",
	Long: `docwire-probe composes the ingestion pipeline's adapters and stages
end to end: it detects content-type evidence for the input, recursively
unpacks any archive it finds, and writes the leaf bytes it settles on
to an output directory, printing the detection trail along the way.`,
	Run: nil,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"print out more debug information")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("docwire-probe failed")
	}
}
