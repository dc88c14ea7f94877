package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/collectors"
	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// Control answers control commands from the shared record, the change
// notifier and the producer registry.
type Control struct {
	rec     *state.Record
	notify  collectors.Notifier
	reg     *collectors.Registry
	started time.Time
	now     func() time.Time
}

// NewControl creates a Control. started is the process start time.
func NewControl(rec *state.Record, n collectors.Notifier, reg *collectors.Registry, started time.Time) *Control {
	return &Control{rec: rec, notify: n, reg: reg, started: started, now: time.Now}
}

// HandleCommand implements IPCHandler.
func (c *Control) HandleCommand(cmd string) (string, error) {
	switch cmd {
	case "REFRESH":
		c.notify.Notify()
		return `{"ok":true}`, nil
	case "HEALTH":
		return healthStatusToJSON(newHealthStatus(os.Getpid(), c.started, c.now(), c.reg.AllStatus()))
	case "SNAPSHOT":
		data, err := json.Marshal(c.rec.Read())
		if err != nil {
			return "", fmt.Errorf("marshal snapshot: %w", err)
		}
		return string(data), nil
	case "":
		return "", fmt.Errorf("empty command")
	}
	return "", fmt.Errorf("unknown command %q", cmd)
}
