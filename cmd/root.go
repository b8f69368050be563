// Package cmd implements the aster command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aster",
	Short: "Aster - support assistant for parents of children with ADHD",
	Long: `Aster answers parenting questions around ADHD: sleep, school,
medication, behavior, emotions, and diagnosis. It selects relevant
knowledge per question, can search the research literature mid-answer,
and streams its responses.

Run "aster serve" to start the HTTP API, or "aster ask" for a one-shot
question from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
