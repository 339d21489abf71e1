package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the snowball version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("snowball", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
