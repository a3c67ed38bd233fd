// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jackamondo/deskmigrate/model"
)

func init() {
	webhookCmd.PersistentFlags().String("server", defaultLocalServerAPI, "The migration server whose API will be queried.")

	webhookCreateCmd.Flags().String("owner", "", "An opaque identifier for the webhook owner.")
	webhookCreateCmd.Flags().String("url", "", "The callback URL that will receive job lifecycle events.")
	webhookCreateCmd.MarkFlagRequired("owner")
	webhookCreateCmd.MarkFlagRequired("url")

	webhookListCmd.Flags().String("owner", "", "The owner id to filter webhooks by.")
	webhookListCmd.Flags().Int("page", 0, "The page of webhooks to fetch, starting at 0.")
	webhookListCmd.Flags().Int("per-page", 100, "The number of webhooks to fetch per page.")
	webhookListCmd.Flags().Bool("include-deleted", false, "Whether to include deleted webhooks.")
	webhookListCmd.Flags().Bool("table", false, "Whether to display the returned webhook list in a table or not.")

	webhookDeleteCmd.Flags().String("webhook", "", "The id of the webhook to delete.")
	webhookDeleteCmd.MarkFlagRequired("webhook")

	webhookCmd.AddCommand(webhookCreateCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookDeleteCmd)
}

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manipulate webhooks registered with the migration server.",
}

var webhookCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a webhook endpoint for job lifecycle events.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		ownerID, _ := command.Flags().GetString("owner")
		url, _ := command.Flags().GetString("url")

		webhook, err := client.CreateWebhook(&model.CreateWebhookRequest{
			OwnerID: ownerID,
			URL:     url,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create webhook")
		}

		return printJSON(webhook)
	},
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered webhooks.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		ownerID, _ := command.Flags().GetString("owner")
		page, _ := command.Flags().GetInt("page")
		perPage, _ := command.Flags().GetInt("per-page")
		includeDeleted, _ := command.Flags().GetBool("include-deleted")

		webhooks, err := client.GetWebhooks(&model.WebhookFilter{
			Paging: model.Paging{
				Page:           page,
				PerPage:        perPage,
				IncludeDeleted: includeDeleted,
			},
			OwnerID: ownerID,
		})
		if err != nil {
			return errors.Wrap(err, "failed to list webhooks")
		}

		outputToTable, _ := command.Flags().GetBool("table")
		if outputToTable {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeader([]string{"ID", "OWNER", "URL"})

			for _, webhook := range webhooks {
				table.Append([]string{webhook.ID, webhook.OwnerID, webhook.URL})
			}
			table.Render()

			return nil
		}

		return printJSON(webhooks)
	},
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a webhook.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		webhookID, _ := command.Flags().GetString("webhook")

		err := client.DeleteWebhook(webhookID)
		if err != nil {
			return errors.Wrap(err, "failed to delete webhook")
		}

		return nil
	},
}
