package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kursio/weft"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the weft version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("weft", weft.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
