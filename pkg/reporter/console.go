// pkg/reporter/console.go - human readable progress on the terminal.

package reporter

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/windowsadmins/tweaker/pkg/logging"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// Console prints run progress through the console logger. Colors are used
// only when the writer is a terminal.
type Console struct {
	log     *logging.Logger
	verbose bool
}

// NewConsole writes to w. With verbose, warnings are printed as they happen;
// otherwise only the per-tweak and final lines are.
func NewConsole(w io.Writer, verbose bool) *Console {
	l := logging.New(verbose)
	l.SetOutput(w)
	l.SetColors(isTerminal(w))
	return &Console{log: l, verbose: verbose}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *Console) OnPlan(labels []string) error {
	if c.verbose && len(labels) > 0 {
		c.log.Info("Applying %d selected option(s)", len(labels))
	}
	return nil
}

func (c *Console) OnStarted(label string) error {
	c.log.Info("Starting: %s", label)
	return nil
}

func (c *Console) OnSucceeded(label string) error {
	c.log.Success("Completed: %s", label)
	return nil
}

func (c *Console) OnFailed(label, message string) error {
	c.log.Error("Failed: %s - %s", label, message)
	return nil
}

func (c *Console) OnWarning(label, message string) error {
	if c.verbose {
		c.log.Warning("%s: %s", label, message)
	}
	return nil
}

func (c *Console) OnRunComplete(s tweak.Summary) error {
	if s.Total == 0 {
		c.log.Warning("No options selected")
		return nil
	}
	if s.Cancelled {
		c.log.Warning("Run cancelled, %d option(s) skipped", s.Skipped)
	}
	if s.Failed > 0 {
		c.log.Error("%d option(s) failed, see the log for details", s.Failed)
	}
	if s.Warned > 0 && !c.verbose {
		c.log.Warning("%d option(s) applied with warnings", s.Warned)
	}
	c.log.Success("Execution Complete: Applied %d tweaks!", s.Succeeded)
	return nil
}

func (c *Console) OnFatal(err error) {
	c.log.Error("Run aborted: %v", err)
}
