package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// daemonRuntimeState is written next to the pid file while the daemon runs.
type daemonRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Plant     string    `json:"plant"`
	Month     string    `json:"month"`
}

// daemonFiles locates the pid file and its JSON state sidecar.
type daemonFiles struct {
	pid   string
	state string
}

func newDaemonFiles(pidFile string) daemonFiles {
	return daemonFiles{pid: pidFile, state: pidFile + ".json"}
}

// ensureStopped fails when a live daemon owns the pid file and clears
// files left behind by a dead one.
func (f daemonFiles) ensureStopped() error {
	pid, err := f.readPID()
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil && processAlive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	f.remove()
	return nil
}

func (f daemonFiles) write(st daemonRuntimeState) error {
	if err := os.MkdirAll(filepath.Dir(f.pid), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(f.pid, []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.state, append(data, '\n'), 0o600)
}

func (f daemonFiles) readPID() (int, error) {
	data, err := os.ReadFile(f.pid)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", f.pid)
	}
	return pid, nil
}

func (f daemonFiles) readState() (daemonRuntimeState, error) {
	var st daemonRuntimeState
	data, err := os.ReadFile(f.state)
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func (f daemonFiles) remove() {
	_ = os.Remove(f.pid)
	_ = os.Remove(f.state)
}
