package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the medtrail client.
// It registers the patient and event command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "medtrail",
		Short: "medtrail client commands",
	}
	AddClientCommands(root, baseURL)
	return root
}

// AddClientCommands attaches the client command groups and the --transport
// flag to an existing root.
func AddClientCommands(root *cobra.Command, baseURL BaseURLFunc) {
	root.PersistentFlags().String("transport", "grpc", "Client transport: grpc|http")
	root.AddCommand(NewPatientCommand(baseURL))
	root.AddCommand(NewEventCommand(baseURL))
}
