package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/fredkin/internal/protocol"
)

// Help lists the console commands.
const Help = `commands:
  toggle X Y   flip the cell at column X, row Y
  clear        kill every cell
  load FILE    load a painted grid (# alive, . dead)
  show         print the grid
  log PATH     select the log file
  mode NAME    select FREDKIN1 or FREDKIN2
  send N       run N generations of the current grid
  status       show connection and log file
  help         show this list
  quit         close the port and exit`

// Dispatch executes one console line. It reports whether the session should end.
func (s *Context) Dispatch(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "quit", "exit":
		return true, nil

	case "help", "?":
		s.out.Info("%s", Help)

	case "toggle":
		if len(args) != 2 {
			return false, usage("toggle X Y")
		}
		x, err := coordinate("x", args[0])
		if err != nil {
			return false, err
		}
		y, err := coordinate("y", args[1])
		if err != nil {
			return false, err
		}
		if err := s.Toggle(x, y); err != nil {
			return false, err
		}
		s.out.Info("cell (%d,%d) is %s", x, y, cellWord(s.grid.Alive(x, y)))

	case "clear":
		s.Clear()
		s.out.Success("grid cleared")

	case "load":
		if len(args) != 1 {
			return false, usage("load FILE")
		}
		if err := s.LoadGrid(args[0]); err != nil {
			return false, err
		}
		s.out.Success("loaded %s (%d alive)", args[0], s.grid.Population())

	case "show":
		s.out.Info("%s", strings.TrimSuffix(s.grid.String(), "\n"))
		s.out.Info("%d alive", s.grid.Population())

	case "log":
		if len(args) != 1 {
			return false, usage("log PATH")
		}
		if err := s.SelectLog(args[0]); err != nil {
			return false, err
		}
		s.out.Success("logging to %s", args[0])

	case "mode":
		if len(args) != 1 {
			return false, usage("mode NAME")
		}
		if err := s.SelectMode(args[0]); err != nil {
			return false, err
		}
		s.out.Success("mode %s", strings.ToUpper(args[0]))

	case "send":
		if len(args) != 1 {
			return false, usage("send N")
		}
		if err := s.SendGrid(args[0]); err != nil {
			return false, err
		}
		s.out.Success("sent %s generations", args[0])

	case "status":
		s.out.Status(s.cfg.Port, s.State())
		if path := s.LogPath(); path != "" {
			s.out.Info("log: %s", path)
		} else {
			s.out.Warning("no log file selected")
		}

	default:
		return false, &protocol.InputError{Field: "command", Value: fields[0], Message: "unknown command, try 'help'"}
	}
	return false, nil
}

func usage(form string) error {
	return &protocol.InputError{Field: "command", Value: form, Message: "wrong number of arguments"}
}

func coordinate(field, text string) (int, error) {
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, &protocol.InputError{Field: field, Value: text, Message: "not an integer"}
	}
	return v, nil
}

func cellWord(alive bool) string {
	if alive {
		return "alive"
	}
	return "dead"
}

// ReadLines scans r on its own goroutine and delivers lines until EOF or ctx
// is done, then closes the channel. Prompt, if set, is written before each
// line is read.
//
// A Scan already blocked in r when ctx ends returns only once r does.
func ReadLines(ctx context.Context, r io.Reader, prompt io.Writer) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for {
			if prompt != nil {
				fmt.Fprint(prompt, "> ")
			}
			if !sc.Scan() || ctx.Err() != nil {
				return
			}
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
