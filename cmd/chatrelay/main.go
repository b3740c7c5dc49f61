package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Local development keeps credentials in a .env file. Absence is
	// fine, deployments use real environment variables.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "chatrelay",
		Short:        "Customer service chat relay",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newReplCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
