package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fredkin/internal/testutil"
	"github.com/roach88/fredkin/internal/transport"
)

// sampleLog is a log file as the control panel writes it.
const sampleLog = `[2024-01-01 10:00:00] Log file created/opened
[2024-01-01 10:00:01] New simulation started
[2024-01-01 10:00:02] LOG,0,0,GEN:0,ALIVE:10,DEAD:1526
                      GRID 0101
[2024-01-01 10:00:03] LOG,0,0,GEN:1,ALIVE:12,DEAD:1524
[2024-01-01 10:00:04] LOG,0,0,GEN:x,ALIVE:12,DEAD:1524
[2024-01-01 10:00:05] LOG,0,0,GEN:2,ALIVE:9,DEAD:1527
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeConfig writes a config for the fake port with no settle delay.
func writeConfig(t *testing.T) string {
	t.Helper()
	return writeFile(t, "fredkin.yml", "port: fake0\nsettle_delay: 0s\npoll_interval: 1ms\n")
}

func fakeTransport(p *testutil.FakePort) []transport.Option {
	return []transport.Option{
		transport.WithOpener(func(string, int, time.Duration) (transport.Port, error) {
			return p, nil
		}),
	}
}

func plain(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}
