// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jackamondo/deskmigrate/internal/tools/utils"
	"github.com/jackamondo/deskmigrate/model"
)

func init() {
	migrationCmd.PersistentFlags().String("server", defaultLocalServerAPI, "The migration server whose API will be queried.")

	migrationRequestCmd.Flags().String("source-type", "live", "The source type: live or snapshot.")
	migrationRequestCmd.Flags().String("snapshot", "", "The snapshot id to read from, for snapshot sources.")
	migrationRequestCmd.Flags().String("source-subdomain", "", "The subdomain of the source instance.")
	migrationRequestCmd.Flags().String("source-email", "", "The account email for the source instance.")
	migrationRequestCmd.Flags().String("source-token", "", "The API token for the source instance.")
	migrationRequestCmd.Flags().String("target-subdomain", "", "The subdomain of the target instance.")
	migrationRequestCmd.Flags().String("target-email", "", "The account email for the target instance.")
	migrationRequestCmd.Flags().String("target-token", "", "The API token for the target instance.")
	migrationRequestCmd.Flags().StringSlice("components", nil, "The components to migrate. Defaults to the full catalog.")
	migrationRequestCmd.Flags().StringSlice("ignore", nil, "Components to exclude when migrating the full catalog.")
	migrationRequestCmd.MarkFlagRequired("source-subdomain")
	migrationRequestCmd.MarkFlagRequired("target-subdomain")

	migrationListCmd.Flags().String("state", "", "The state to filter migration jobs by.")
	migrationListCmd.Flags().Int("page", 0, "The page of migration jobs to fetch, starting at 0.")
	migrationListCmd.Flags().Int("per-page", 100, "The number of migration jobs to fetch per page.")
	migrationListCmd.Flags().Bool("include-deleted", false, "Whether to include deleted migration jobs.")
	migrationListCmd.Flags().Bool("table", false, "Whether to display the returned migration job list in a table or not.")

	migrationGetCmd.Flags().String("migration", "", "The id of the migration job to get.")
	migrationGetCmd.MarkFlagRequired("migration")

	migrationCancelCmd.Flags().String("migration", "", "The id of the migration job to cancel.")
	migrationCancelCmd.MarkFlagRequired("migration")

	migrationMappingsCmd.Flags().String("migration", "", "The id of the migration job whose mappings to list.")
	migrationMappingsCmd.Flags().Bool("table", false, "Whether to display the returned mappings in a table or not.")
	migrationMappingsCmd.MarkFlagRequired("migration")

	migrationCmd.AddCommand(migrationRequestCmd)
	migrationCmd.AddCommand(migrationListCmd)
	migrationCmd.AddCommand(migrationGetCmd)
	migrationCmd.AddCommand(migrationCancelCmd)
	migrationCmd.AddCommand(migrationMappingsCmd)
}

var migrationCmd = &cobra.Command{
	Use:   "migration",
	Short: "Manipulate migration jobs managed by the migration server.",
}

var migrationRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request a new migration job.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		sourceType, _ := command.Flags().GetString("source-type")
		snapshotID, _ := command.Flags().GetString("snapshot")
		components, _ := command.Flags().GetStringSlice("components")
		ignore, _ := command.Flags().GetStringSlice("ignore")

		request := &model.CreateMigrationJobRequest{
			Source: model.MigrationSource{
				Type:         model.SourceType(sourceType),
				SnapshotID:   snapshotID,
				InstanceInfo: instanceRefFromFlags(command, "source"),
			},
			Target: model.MigrationTarget{
				InstanceInfo: instanceRefFromFlags(command, "target"),
			},
			Components:   components,
			IgnoredItems: ignore,
		}

		job, err := client.CreateMigrationJob(request)
		if err != nil {
			return errors.Wrap(err, "failed to request migration job")
		}

		return printJSON(job)
	},
}

func instanceRefFromFlags(command *cobra.Command, prefix string) *model.InstanceRef {
	subdomain, _ := command.Flags().GetString(prefix + "-subdomain")
	email, _ := command.Flags().GetString(prefix + "-email")
	token, _ := command.Flags().GetString(prefix + "-token")

	credentials := model.Credentials{}
	if email != "" {
		credentials["email"] = email
	}
	if token != "" {
		credentials["api_token"] = token
	}

	return &model.InstanceRef{
		Subdomain:   subdomain,
		Credentials: credentials,
	}
}

var migrationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List migration jobs.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		state, _ := command.Flags().GetString("state")
		page, _ := command.Flags().GetInt("page")
		perPage, _ := command.Flags().GetInt("per-page")
		includeDeleted, _ := command.Flags().GetBool("include-deleted")

		filter := &model.MigrationJobFilter{
			Paging: model.Paging{
				Page:           page,
				PerPage:        perPage,
				IncludeDeleted: includeDeleted,
			},
		}
		if state != "" {
			filter.States = []model.MigrationJobState{model.MigrationJobState(state)}
		}

		jobs, err := client.GetMigrationJobs(filter)
		if err != nil {
			return errors.Wrap(err, "failed to list migration jobs")
		}

		outputToTable, _ := command.Flags().GetBool("table")
		if outputToTable {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeader([]string{"ID", "STATE", "SOURCE", "PROGRESS", "REQUESTED", "ERROR"})

			for _, job := range jobs {
				table.Append([]string{
					job.ID,
					string(job.State),
					string(job.SourceType),
					strconv.FormatInt(job.Progress, 10) + "%",
					utils.TimeFromMillis(job.RequestAt).Format("2006-01-02 15:04:05"),
					job.Error,
				})
			}
			table.Render()

			return nil
		}

		return printJSON(jobs)
	},
}

var migrationGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a migration job.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		jobID, _ := command.Flags().GetString("migration")

		job, err := client.GetMigrationJob(jobID)
		if err != nil {
			return errors.Wrap(err, "failed to get migration job")
		}

		return printJSON(job)
	},
}

var migrationCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Request cancellation of a migration job at the next component boundary.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		jobID, _ := command.Flags().GetString("migration")

		err := client.CancelMigrationJob(jobID)
		if err != nil {
			return errors.Wrap(err, "failed to cancel migration job")
		}

		return nil
	},
}

var migrationMappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "List the id mappings recorded by a migration job.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		jobID, _ := command.Flags().GetString("migration")

		mappings, err := client.GetMigrationJobMappings(jobID)
		if err != nil {
			return errors.Wrap(err, "failed to get migration job mappings")
		}

		outputToTable, _ := command.Flags().GetBool("table")
		if outputToTable {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeader([]string{"ENTITY TYPE", "SOURCE ID", "TARGET ID", "NAME"})

			for _, mapping := range mappings {
				table.Append([]string{
					mapping.EntityType,
					mapping.SourceID,
					mapping.TargetID,
					mapping.Metadata["sourceName"],
				})
			}
			table.Render()

			return nil
		}

		return printJSON(mappings)
	},
}
