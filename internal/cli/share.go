package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShareNWBCmd(factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share-nwb FILE",
		Short: "Upload an NWB file to S3 and open it in the web viewer",
		Long: `Upload FILE to the configured S3 bucket and open the Neurosift viewer on
the uploaded object. Requires NEUROSIFT_S3_BUCKET and NEUROSIFT_S3_REGION.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backends, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			url, err := backends.Sharer.ShareFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	return cmd
}
