// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package main

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jackamondo/deskmigrate/internal/tools/utils"
	"github.com/jackamondo/deskmigrate/model"
)

func init() {
	snapshotCmd.PersistentFlags().String("server", defaultLocalServerAPI, "The migration server whose API will be queried.")

	snapshotRegisterCmd.Flags().String("name", "", "The name of the snapshot.")
	snapshotRegisterCmd.Flags().String("parent", "", "The id of the instance the snapshot was taken from.")
	snapshotRegisterCmd.Flags().Bool("locked", false, "Whether the snapshot is reserved and unusable as a migration source.")
	snapshotRegisterCmd.Flags().String("breakdown", "", "A JSON file describing the component blobs held by the snapshot.")
	snapshotRegisterCmd.MarkFlagRequired("name")
	snapshotRegisterCmd.MarkFlagRequired("parent")

	snapshotListCmd.Flags().String("parent", "", "The instance id to filter snapshots by.")
	snapshotListCmd.Flags().Int("page", 0, "The page of snapshots to fetch, starting at 0.")
	snapshotListCmd.Flags().Int("per-page", 100, "The number of snapshots to fetch per page.")
	snapshotListCmd.Flags().Bool("include-deleted", false, "Whether to include deleted snapshots.")
	snapshotListCmd.Flags().Bool("table", false, "Whether to display the returned snapshot list in a table or not.")

	snapshotGetCmd.Flags().String("snapshot", "", "The id of the snapshot to get.")
	snapshotGetCmd.MarkFlagRequired("snapshot")

	snapshotDeleteCmd.Flags().String("snapshot", "", "The id of the snapshot to delete.")
	snapshotDeleteCmd.MarkFlagRequired("snapshot")

	snapshotCmd.AddCommand(snapshotRegisterCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotGetCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manipulate snapshots registered with the migration server.",
}

var snapshotRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register snapshot metadata captured out of band.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		name, _ := command.Flags().GetString("name")
		parent, _ := command.Flags().GetString("parent")
		locked, _ := command.Flags().GetBool("locked")
		breakdownFile, _ := command.Flags().GetString("breakdown")

		var breakdown model.SnapshotBreakdown
		if breakdownFile != "" {
			data, err := os.ReadFile(breakdownFile)
			if err != nil {
				return errors.Wrap(err, "failed to read breakdown file")
			}
			err = json.Unmarshal(data, &breakdown)
			if err != nil {
				return errors.Wrap(err, "failed to parse breakdown file")
			}
		}

		snapshot, err := client.RegisterSnapshot(&model.RegisterSnapshotRequest{
			Name:      name,
			ParentID:  parent,
			Locked:    locked,
			Breakdown: breakdown,
		})
		if err != nil {
			return errors.Wrap(err, "failed to register snapshot")
		}

		return printJSON(snapshot)
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered snapshots.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		parent, _ := command.Flags().GetString("parent")
		page, _ := command.Flags().GetInt("page")
		perPage, _ := command.Flags().GetInt("per-page")
		includeDeleted, _ := command.Flags().GetBool("include-deleted")

		snapshots, err := client.GetSnapshots(&model.SnapshotFilter{
			Paging: model.Paging{
				Page:           page,
				PerPage:        perPage,
				IncludeDeleted: includeDeleted,
			},
			ParentID: parent,
		})
		if err != nil {
			return errors.Wrap(err, "failed to list snapshots")
		}

		outputToTable, _ := command.Flags().GetBool("table")
		if outputToTable {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeader([]string{"ID", "NAME", "PARENT", "COMPONENTS", "LOCKED", "CREATED"})

			for _, snapshot := range snapshots {
				table.Append([]string{
					snapshot.ID,
					snapshot.Name,
					snapshot.ParentID,
					strconv.Itoa(len(snapshot.Breakdown)),
					strconv.FormatBool(snapshot.Locked),
					utils.TimeFromMillis(snapshot.CreateAt).Format("2006-01-02 15:04:05"),
				})
			}
			table.Render()

			return nil
		}

		return printJSON(snapshots)
	},
}

var snapshotGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a snapshot.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		snapshotID, _ := command.Flags().GetString("snapshot")

		snapshot, err := client.GetSnapshot(snapshotID)
		if err != nil {
			return errors.Wrap(err, "failed to get snapshot")
		}

		return printJSON(snapshot)
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Mark a snapshot as deleted.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		serverAddress, _ := command.Flags().GetString("server")
		client := model.NewClient(serverAddress)

		snapshotID, _ := command.Flags().GetString("snapshot")

		err := client.DeleteSnapshot(snapshotID)
		if err != nil {
			return errors.Wrap(err, "failed to delete snapshot")
		}

		return nil
	},
}
