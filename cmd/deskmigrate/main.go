// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Deskmigrate is a server and CLI for migrating helpdesk configuration
// between instances.
package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

const defaultLocalServerAPI = "http://localhost:8075"

var rootCmd = &cobra.Command{
	Use:   "deskmigrate",
	Short: "Deskmigrate migrates helpdesk configuration between instances.",
	Run: func(cmd *cobra.Command, args []string) {
		serverCmd.RunE(cmd, args)
	},
	// SilenceErrors allows us to explicitly log the error returned from rootCmd below.
	SilenceErrors: true,
}

func init() {
	rootCmd.MarkFlagRequired("database")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(migrationCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(webhookCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "    ")
	return encoder.Encode(data)
}
