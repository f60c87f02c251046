package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fredkin/internal/transport"
)

// PortsOptions holds flags for the ports command.
type PortsOptions struct {
	*RootOptions

	// List enumerates ports. Defaults to transport.ListPorts.
	List func() ([]string, error)
}

// NewPortsCommand creates the ports command.
func NewPortsCommand(rootOpts *RootOptions) *cobra.Command {
	return newPortsCommand(&PortsOptions{RootOptions: rootOpts, List: transport.ListPorts})
}

func newPortsCommand(opts *PortsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Long: `List the serial ports present on this machine.

The port is never auto-detected; pass one of these to --port.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPorts(opts, cmd)
		},
	}
	return cmd
}

func runPorts(opts *PortsOptions, cmd *cobra.Command) error {
	ports, err := opts.List()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list ports", err)
	}
	if ports == nil {
		ports = []string{}
	}

	return formatter(opts.RootOptions, cmd).Render(ports, func(w io.Writer) error {
		if len(ports) == 0 {
			_, err := fmt.Fprintln(w, "no serial ports found")
			return err
		}
		for _, p := range ports {
			if _, err := fmt.Fprintln(w, p); err != nil {
				return err
			}
		}
		return nil
	})
}
