package client

import (
	"fmt"

	medtrailv1 "github.com/rzbill/medtrail/api/medtrail/v1"
	"github.com/spf13/cobra"
)

// NewPatientCommand constructs the `patient` command group and subcommands.
func NewPatientCommand(baseURL BaseURLFunc) *cobra.Command {
	patientCmd := &cobra.Command{Use: "patient", Short: "Patient operations"}
	patientCmd.AddCommand(
		newPatientCreateCommand(baseURL),
		newPatientGetCommand(baseURL),
		newPatientListCommand(baseURL),
		newPatientDeleteCommand(baseURL),
	)
	return patientCmd
}

// newPatientCreateCommand constructs the `patient create` subcommand.
func newPatientCreateCommand(baseURL BaseURLFunc) *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create or replace a patient",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString("id")
			name, _ := cmd.Flags().GetString("name")
			dob, _ := cmd.Flags().GetString("dob")
			kvs, _ := cmd.Flags().GetStringArray("attr")
			attrs, err := parseAttrs(kvs)
			if err != nil {
				return err
			}
			t, err := transportFor(cmd, baseURL)
			if err != nil {
				return err
			}
			p, err := t.CreatePatient(cmd.Context(), medtrailv1.CreatePatientRequest{
				ID:          id,
				Name:        name,
				DateOfBirth: dob,
				Attributes:  attrs,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	createCmd.Flags().String("id", "", "Patient id (generated when empty)")
	createCmd.Flags().String("name", "", "Patient name")
	createCmd.Flags().String("dob", "", "Date of birth (YYYY-MM-DD)")
	createCmd.Flags().StringArray("attr", nil, "Attribute key=value (repeatable)")
	_ = createCmd.MarkFlagRequired("name")
	return createCmd
}

// newPatientGetCommand constructs the `patient get` subcommand.
func newPatientGetCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <patient-id>",
		Short: "Show a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := transportFor(cmd, baseURL)
			if err != nil {
				return err
			}
			p, err := t.GetPatient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

// newPatientListCommand constructs the `patient list` subcommand.
func newPatientListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List patients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			t, err := transportFor(cmd, baseURL)
			if err != nil {
				return err
			}
			resp, err := t.ListPatients(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	listCmd.Flags().Int("limit", 100, "Max patients to return")
	return listCmd
}

// newPatientDeleteCommand constructs the `patient delete` subcommand.
func newPatientDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete <patient-id>",
		Short: "Delete a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cascade, _ := cmd.Flags().GetBool("cascade")
			t, err := transportFor(cmd, baseURL)
			if err != nil {
				return err
			}
			resp, err := t.DeletePatient(cmd.Context(), args[0], cascade)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK", "events_removed:", resp.EventsRemoved)
			return nil
		},
	}
	deleteCmd.Flags().Bool("cascade", false, "Also delete the patient's events")
	return deleteCmd
}
