package client

import (
	"fmt"
	"strconv"
	"time"

	medtrailv1 "github.com/rzbill/medtrail/api/medtrail/v1"
	"github.com/spf13/cobra"
)

// NewEventCommand constructs the `event` command group and subcommands.
func NewEventCommand(baseURL BaseURLFunc) *cobra.Command {
	eventCmd := &cobra.Command{Use: "event", Short: "Medical event operations"}
	eventCmd.AddCommand(
		newEventAddCommand(baseURL),
		newEventListCommand(baseURL),
	)
	return eventCmd
}

// newEventAddCommand constructs the `event add` subcommand.
func newEventAddCommand(baseURL BaseURLFunc) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Append an event to a patient",
		RunE: func(cmd *cobra.Command, _ []string) error {
			patient, _ := cmd.Flags().GetString("patient")
			id, _ := cmd.Flags().GetString("id")
			at, _ := cmd.Flags().GetString("at")
			typ, _ := cmd.Flags().GetString("type")
			desc, _ := cmd.Flags().GetString("description")
			codes, _ := cmd.Flags().GetStringSlice("code")
			by, _ := cmd.Flags().GetString("by")

			if at != "" {
				if _, err := strconv.ParseInt(at, 10, 64); err != nil {
					if _, err := time.Parse(time.RFC3339, at); err != nil {
						return fmt.Errorf("invalid --at; expected ms or RFC3339")
					}
				}
			}
			t, err := transportFor(cmd, baseURL)
			if err != nil {
				return err
			}
			ev, err := t.AddEvent(cmd.Context(), medtrailv1.AddEventRequest{
				PatientID:   patient,
				EventID:     id,
				Timestamp:   at,
				EventType:   typ,
				Description: desc,
				Codes:       codes,
				CreatedBy:   by,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ev)
		},
	}
	addCmd.Flags().String("patient", "", "Patient id")
	addCmd.Flags().String("id", "", "Event id, 32 hex chars (generated when empty)")
	addCmd.Flags().String("at", "", "Event time: RFC3339 or ms (default now)")
	addCmd.Flags().String("type", "", "Event type")
	addCmd.Flags().String("description", "", "Free-text description")
	addCmd.Flags().StringSlice("code", nil, "Clinical code (repeatable or comma-separated)")
	addCmd.Flags().String("by", "", "Author")
	_ = addCmd.MarkFlagRequired("patient")
	_ = addCmd.MarkFlagRequired("type")
	return addCmd
}

// newEventListCommand constructs the `event list` subcommand.
func newEventListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a patient's events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			patient, _ := cmd.Flags().GetString("patient")
			limit, _ := cmd.Flags().GetInt("limit")
			token, _ := cmd.Flags().GetString("page-token")
			filter, _ := cmd.Flags().GetString("filter")

			req := medtrailv1.ListEventsRequest{
				PatientID: patient,
				Limit:     limit,
				PageToken: token,
				Filter:    filter,
			}
			if cmd.Flags().Changed("window-days") {
				days, _ := cmd.Flags().GetInt("window-days")
				req.WindowDays = &days
			}
			t, err := transportFor(cmd, baseURL)
			if err != nil {
				return err
			}
			resp, err := t.ListEvents(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	listCmd.Flags().String("patient", "", "Patient id")
	listCmd.Flags().Int("window-days", 0, "Look-back window in days (server default when unset)")
	listCmd.Flags().Int("limit", 0, "Page size (0 returns the whole window)")
	listCmd.Flags().String("page-token", "", "Continuation token from a previous page")
	listCmd.Flags().String("filter", "", "CEL filter (server-side)")
	_ = listCmd.MarkFlagRequired("patient")
	return listCmd
}
