// pkg/reporter/pipe.go - streams run progress to a status window over TCP.

package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/windowsadmins/tweaker/pkg/logging"
	"github.com/windowsadmins/tweaker/pkg/retry"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// StatusMessage is the wire format: one JSON object per line.
type StatusMessage struct {
	Type    string `json:"type"`
	Label   string `json:"label,omitempty"`
	Data    string `json:"data,omitempty"`
	Percent int    `json:"percent,omitempty"`
	Error   bool   `json:"error,omitempty"`
}

// PipeReporter forwards events to a status listener. The listener is
// optional: connection and write failures are logged and never fail a run.
type PipeReporter struct {
	address string
	mu      sync.Mutex
	conn    net.Conn
	total   int
	done    int
}

// NewPipeReporter creates a reporter for the listener at address (host:port).
func NewPipeReporter(address string) *PipeReporter {
	return &PipeReporter{address: address}
}

// Connect dials the listener, retrying briefly while it starts up.
func (r *PipeReporter) Connect(ctx context.Context) error {
	var d net.Dialer
	cfg := retry.RetryConfig{
		MaxRetries:      10,
		InitialInterval: 100 * time.Millisecond,
		Multiplier:      1.5,
		Name:            "status connect",
	}
	return retry.Do(ctx, cfg, func() error {
		conn, err := d.DialContext(ctx, "tcp", r.address)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.conn = conn
		r.mu.Unlock()
		logging.Debug("Connected to status listener", "address", r.address)
		return nil
	})
}

func (r *PipeReporter) send(msg StatusMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Debug("Failed to marshal status message", "error", err)
		return
	}
	data = append(data, '\n')

	if _, err := r.conn.Write(data); err != nil {
		logging.Debug("Failed to write to status listener, disconnecting", "error", err)
		r.conn.Close()
		r.conn = nil
	}
}

func (r *PipeReporter) progress() {
	r.mu.Lock()
	r.done++
	pct := -1
	if r.total > 0 {
		pct = r.done * 100 / r.total
	}
	r.mu.Unlock()
	r.send(StatusMessage{Type: "percentProgress", Percent: pct})
}

func (r *PipeReporter) OnPlan(labels []string) error {
	r.mu.Lock()
	r.total, r.done = len(labels), 0
	r.mu.Unlock()
	r.send(StatusMessage{Type: "statusMessage", Data: fmt.Sprintf("Applying %d option(s)", len(labels))})
	return nil
}

func (r *PipeReporter) OnStarted(label string) error {
	r.send(StatusMessage{Type: "detailMessage", Label: label, Data: "Starting: " + label})
	return nil
}

func (r *PipeReporter) OnSucceeded(label string) error {
	r.send(StatusMessage{Type: "detailMessage", Label: label, Data: "Completed: " + label})
	r.progress()
	return nil
}

func (r *PipeReporter) OnFailed(label, message string) error {
	r.send(StatusMessage{Type: "detailMessage", Label: label, Data: fmt.Sprintf("Failed: %s - %s", label, message), Error: true})
	r.progress()
	return nil
}

func (r *PipeReporter) OnWarning(label, message string) error {
	r.send(StatusMessage{Type: "warningMessage", Label: label, Data: message})
	return nil
}

func (r *PipeReporter) OnRunComplete(s tweak.Summary) error {
	msg := "No options selected"
	if s.Total > 0 {
		msg = fmt.Sprintf("Execution Complete: Applied %d tweaks!", s.Succeeded)
	}
	r.send(StatusMessage{Type: "statusMessage", Data: msg, Error: s.Failed > 0})
	return nil
}

func (r *PipeReporter) OnFatal(err error) {
	r.send(StatusMessage{Type: "statusMessage", Data: fmt.Sprintf("Error: %v", err), Error: true})
}

// Close sends a quit message and drops the connection.
func (r *PipeReporter) Close() {
	r.send(StatusMessage{Type: "quit"})

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}
