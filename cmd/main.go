package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bidtask/bidtask/cmd/cli"
	"github.com/bidtask/bidtask/pkg/logger"
)

var logMode string

var rootCmd = &cobra.Command{
	Use:   "bidtask",
	Short: "Bidtask server",
	Long:  `A two-sided task marketplace where clients post tasks and taskers compete with bids`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch logMode {
		case "pretty", "json":
			logger.InitWithMode(logger.LogMode(logMode))
		default:
			logger.InitWithMode(logger.LogModePretty)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cli.RunServer()
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the marketplace API server",
	Run: func(cmd *cobra.Command, args []string) {
		cli.RunServer()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Run: func(cmd *cobra.Command, args []string) {
		down, _ := cmd.Flags().GetBool("down")
		cli.RunMigrate(down)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logMode, "log", "pretty", "Log mode: pretty, json")
	migrateCmd.Flags().Bool("down", false, "Roll back migrations instead of applying them")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
