package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fredkin/internal/session"
	"github.com/roach88/fredkin/internal/transport"
)

// SendOptions holds flags for the send command.
type SendOptions struct {
	*RootOptions
	ConnOptions
	Generations string
	GridFile    string
	Mode        string
	Listen      time.Duration
}

// SendResult is the outcome of a send.
type SendResult struct {
	Port        string `json:"port"`
	Mode        string `json:"mode,omitempty"`
	Generations string `json:"generations"`
	Population  int    `json:"population"`
	LogFile     string `json:"log_file"`
	State       string `json:"state"`
}

// NewSendCommand creates the one-shot send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	return newSendCommand(&SendOptions{RootOptions: rootOpts})
}

func newSendCommand(opts *SendOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one grid to the device",
		Long: `Open the port, optionally select a mode, send a grid and a generation
count, then keep logging device output for the --listen duration.

Examples:
  fredkin send --log logs.txt --grid glider.txt -n 100 --listen 30s
  fredkin send --log logs.txt --mode FREDKIN2 -n 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(opts, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.Generations, "generations", "n", "", "number of generations to run (required)")
	_ = cmd.MarkFlagRequired("generations")
	cmd.Flags().StringVar(&opts.GridFile, "grid", "", "painted grid file (default: empty grid)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "rule variant to select first (FREDKIN1|FREDKIN2)")
	cmd.Flags().DurationVar(&opts.Listen, "listen", 0, "keep receiving device output for this long")

	return cmd
}

func runSend(opts *SendOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	opts.apply(cmd, &cfg)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	// Console messages go to stderr; stdout carries the result.
	s := session.New(ctx, cfg, cmd.ErrOrStderr(), session.WithTransportOptions(opts.TransportOptions...))
	defer s.Close()

	if opts.GridFile != "" {
		if err := s.LoadGrid(opts.GridFile); err != nil {
			return WrapExitError(ExitCommandError, "failed to load grid", err)
		}
	}
	if err := s.OpenError(); err != nil {
		return sendError("failed to open port", err)
	}
	if opts.Mode != "" {
		if err := s.SelectMode(opts.Mode); err != nil {
			return sendError("failed to select mode", err)
		}
	}
	if err := s.SendGrid(opts.Generations); err != nil {
		return sendError("failed to send grid", err)
	}

	if opts.Listen > 0 {
		listenCtx, stop := context.WithTimeout(ctx, opts.Listen)
		defer stop()
		if err := s.Run(listenCtx, nil); err != nil &&
			!errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "receive failed", err)
		}
	}

	result := SendResult{
		Port:        cfg.Port,
		Mode:        opts.Mode,
		Generations: opts.Generations,
		Population:  s.Grid().Population(),
		LogFile:     s.LogPath(),
		State:       s.State().String(),
	}
	return formatter(opts.RootOptions, cmd).Render(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "sent %s generations of %d alive cells to %s (log: %s)\n",
			result.Generations, result.Population, result.Port, result.LogFile)
		return err
	})
}

// sendError maps session errors to exit codes: rejected input is a command
// error, everything else a device failure.
func sendError(message string, err error) error {
	if transport.IsPortUnavailable(err) || transport.IsCommunicationFailure(err) {
		return WrapExitError(ExitFailure, message, err)
	}
	return WrapExitError(ExitCommandError, message, err)
}
