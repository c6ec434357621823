package cli

import (
	"github.com/spf13/cobra"
)

func newViewNWBCmd(factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view-nwb FILE",
		Short: "Open a local NWB file in the web viewer",
		Long: `Serve FILE through a local file server and open the Neurosift viewer on it.
The command keeps running until the server exits or it is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backends, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			return backends.Viewer.ViewFile(cmd.Context(), args[0])
		},
	}

	return cmd
}
