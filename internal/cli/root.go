// Package cli defines the neurosift command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Viewer opens a local data file in the web viewer.
type Viewer interface {
	ViewFile(ctx context.Context, path string) error
}

// Sharer uploads a data file and opens the viewer on the uploaded copy.
type Sharer interface {
	ShareFile(ctx context.Context, path string) (string, error)
}

// Backends are the services commands run against.
type Backends struct {
	Viewer Viewer
	Sharer Sharer
}

// Factory builds Backends on first use, so help and version work without
// loading configuration.
type Factory func(ctx context.Context) (*Backends, error)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd(factory Factory, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "neurosift",
		Short:         "Neurosift command line tools",
		Long:          "Open local or shared NWB files in the Neurosift web viewer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newViewNWBCmd(factory))
	rootCmd.AddCommand(newShareNWBCmd(factory))
	rootCmd.AddCommand(newVersionCmd(version))

	return rootCmd
}
