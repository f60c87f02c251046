package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/fredkin/internal/config"
	"github.com/roach88/fredkin/internal/session"
	"github.com/roach88/fredkin/internal/transport"
)

// ConnOptions holds the serial flags shared by session and send.
// Flags override the config file only when given.
type ConnOptions struct {
	Port    string
	Baud    int
	LogFile string

	// TransportOptions are passed to transport.Open (tests use a fake port).
	TransportOptions []transport.Option
}

func (c *ConnOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.Port, "port", "p", "", "serial port (default from config, then "+config.DefaultPort()+")")
	cmd.Flags().IntVar(&c.Baud, "baud", 0, "baud rate (default 115200)")
	cmd.Flags().StringVar(&c.LogFile, "log", "", "log file for device output")
}

func (c *ConnOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port = c.Port
	}
	if cmd.Flags().Changed("baud") {
		cfg.BaudRate = c.Baud
	}
	if cmd.Flags().Changed("log") {
		cfg.LogFile = c.LogFile
	}
}

// SessionOptions holds flags for the session command.
type SessionOptions struct {
	*RootOptions
	ConnOptions
}

// NewSessionCommand creates the interactive session command.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	return newSessionCommand(&SessionOptions{RootOptions: rootOpts})
}

func newSessionCommand(opts *SessionOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open the interactive control panel",
		Long: `Open the serial port and read control-panel commands from stdin.

Device output is appended to the selected log file and acknowledged while
commands are being typed. The panel stays usable for editing when the device cannot be
opened; sends then fail until the next session.

` + session.Help + `

Examples:
  fredkin session --port /dev/ttyACM0 --log logs_fredkin.txt
  fredkin session --config fredkin.yml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	opts.bind(cmd)
	return cmd
}

func runSession(opts *SessionOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	opts.apply(cmd, &cfg)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	out := cmd.OutOrStdout()
	s := session.New(ctx, cfg, out, session.WithTransportOptions(opts.TransportOptions...))
	s.Report(s.OpenError())
	s.Printer().Info("type 'help' for commands")

	slog.Debug("session started", "port", cfg.Port, "log", cfg.LogFile)
	err = s.Run(ctx, session.ReadLines(ctx, cmd.InOrStdin(), promptWriter(cmd)))
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "session error", err)
	}
	slog.Debug("session ended", "state", s.State())
	return nil
}

// promptWriter returns where to draw the input prompt: stdout when stdin is
// a terminal, nowhere when commands are piped in.
func promptWriter(cmd *cobra.Command) io.Writer {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isatty.IsTerminal(in.Fd()) {
		return nil
	}
	return cmd.OutOrStdout()
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
