package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/tweaker/pkg/catalog"
	"github.com/windowsadmins/tweaker/pkg/reporter"
	"github.com/windowsadmins/tweaker/pkg/system"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// recorder logs every callback as a string.
type recorder struct {
	mu      sync.Mutex
	events  []string
	summary *tweak.Summary
	fatal   error
	failOn  string
}

func (r *recorder) add(ev string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.failOn != "" && ev == r.failOn {
		return errors.New("display closed")
	}
	return nil
}

func (r *recorder) OnStarted(label string) error   { return r.add("started " + label) }
func (r *recorder) OnSucceeded(label string) error { return r.add("succeeded " + label) }
func (r *recorder) OnFailed(label, msg string) error {
	return r.add(fmt.Sprintf("failed %s: %s", label, msg))
}
func (r *recorder) OnWarning(label, msg string) error { return r.add("warning " + label) }
func (r *recorder) OnRunComplete(s tweak.Summary) error {
	r.summary = &s
	return r.add(fmt.Sprintf("complete %d/%d/%d", s.Total, s.Succeeded, s.Failed))
}
func (r *recorder) OnFatal(err error) { r.fatal = err }

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func ok() tweak.Action {
	return tweak.ActionFunc(func(context.Context, tweak.Output) error { return nil })
}

func fail(msg string) tweak.Action {
	return tweak.ActionFunc(func(context.Context, tweak.Output) error {
		return &tweak.ActionError{Step: "step", Err: errors.New(msg)}
	})
}

func registry(t *testing.T, actions map[string]tweak.Action, order ...string) *catalog.Registry {
	t.Helper()
	reg := catalog.New()
	for _, label := range order {
		require.NoError(t, reg.Register(tweak.Descriptor{Label: label, Category: tweak.Essential, Action: actions[label]}))
	}
	reg.Seal()
	return reg
}

func TestRunReportsInOrderAndIsolatesFailures(t *testing.T) {
	reg := registry(t, map[string]tweak.Action{
		"Create Restore Point":   ok(),
		"Delete Temporary Files": fail("access denied"),
	}, "Create Restore Point", "Delete Temporary Files")

	rec := &recorder{}
	summary, err := New(reg).Run(context.Background(), tweak.Essential,
		[]string{"Create Restore Point", "Delete Temporary Files"}, rec)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{
		"started Create Restore Point",
		"succeeded Create Restore Point",
		"started Delete Temporary Files",
		"failed Delete Temporary Files: step: access denied",
		"complete 2/1/1",
	}, rec.Events())

	require.Len(t, summary.Results, 2)
	assert.Equal(t, tweak.Failed, summary.Results[1].Outcome)
	assert.Equal(t, tweak.KindAction, summary.Results[1].Kind)
	assert.NotEmpty(t, summary.RunID)
}

func TestRunEmptySelection(t *testing.T) {
	rec := &recorder{}
	summary, err := New(catalog.New()).Run(context.Background(), tweak.Advanced, nil, rec)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, []string{"complete 0/0/0"}, rec.Events())
}

func TestFailureInTheMiddleDoesNotStopLaterActions(t *testing.T) {
	var ran []string
	track := func(label string) tweak.Action {
		return tweak.ActionFunc(func(context.Context, tweak.Output) error {
			ran = append(ran, label)
			return nil
		})
	}
	reg := registry(t, map[string]tweak.Action{
		"a": track("a"),
		"b": tweak.ActionFunc(func(context.Context, tweak.Output) error { panic("broken action") }),
		"c": fail("nope"),
		"d": track("d"),
	}, "a", "b", "c", "d")

	rec := &recorder{}
	summary, err := New(reg).Run(context.Background(), tweak.Essential, []string{"a", "b", "c", "d"}, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, ran)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Contains(t, summary.Results[1].Message, "panic: broken action")

	var started, terminal int
	for _, ev := range rec.Events() {
		switch {
		case strings.HasPrefix(ev, "started "):
			started++
		case strings.HasPrefix(ev, "succeeded "), strings.HasPrefix(ev, "failed "):
			terminal++
		}
	}
	assert.Equal(t, 4, started)
	assert.Equal(t, 4, terminal)
}

func TestUnknownLabelFailsBeforeRunning(t *testing.T) {
	ran := false
	reg := registry(t, map[string]tweak.Action{
		"known": tweak.ActionFunc(func(context.Context, tweak.Output) error { ran = true; return nil }),
	}, "known")

	rec := &recorder{}
	_, err := New(reg).Run(context.Background(), tweak.Essential, []string{"known", "missing"}, rec)
	var unknown *catalog.UnknownActionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.Label)
	assert.False(t, ran)
	assert.Empty(t, rec.Events())
	assert.Equal(t, err, rec.fatal)
}

func TestWarningsCountAsSuccess(t *testing.T) {
	reg := registry(t, map[string]tweak.Action{
		"Disable Homegroup": tweak.ActionFunc(func(_ context.Context, out tweak.Output) error {
			out.Warn("Might have partially failed")
			return nil
		}),
	}, "Disable Homegroup")

	rec := &recorder{}
	summary, err := New(reg).Run(context.Background(), tweak.Essential, []string{"Disable Homegroup"}, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Warned)
	assert.Equal(t, tweak.Warned, summary.Results[0].Outcome)
	assert.Equal(t, []string{"Might have partially failed"}, summary.Results[0].Warnings)
	assert.Equal(t, []string{
		"started Disable Homegroup",
		"warning Disable Homegroup",
		"succeeded Disable Homegroup",
		"complete 1/1/0",
	}, rec.Events())
}

func TestTimeoutIsClassified(t *testing.T) {
	reg := registry(t, map[string]tweak.Action{
		"Install Chrome": tweak.ActionFunc(func(context.Context, tweak.Output) error {
			return &tweak.ActionError{Step: "winget", Err: &system.TimeoutError{Command: "winget", Timeout: time.Minute}}
		}),
	}, "Install Chrome")

	summary, err := New(reg).Run(context.Background(), tweak.Essential, []string{"Install Chrome"}, nil)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, tweak.KindTimeout, summary.Results[0].Kind)
}

func TestCancellationSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var sawCancel bool
	reg := registry(t, map[string]tweak.Action{
		"first": tweak.ActionFunc(func(actx context.Context, _ tweak.Output) error {
			cancel()
			sawCancel = actx.Err() != nil
			return nil
		}),
		"second": ok(),
		"third":  ok(),
	}, "first", "second", "third")

	rec := &recorder{}
	summary, err := New(reg).Run(ctx, tweak.Essential, []string{"first", "second", "third"}, rec)
	require.NoError(t, err)
	assert.False(t, sawCancel, "a started action is not interrupted")
	assert.True(t, summary.Cancelled)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, []string{"started first", "succeeded first", "complete 3/1/0"}, rec.Events())
}

func TestReporterErrorAbortsRun(t *testing.T) {
	reg := registry(t, map[string]tweak.Action{"a": ok(), "b": ok()}, "a", "b")

	rec := &recorder{failOn: "succeeded a"}
	summary, err := New(reg).Run(context.Background(), tweak.Essential, []string{"a", "b"}, rec)
	var rerr *ReporterError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, reporter.EventSucceeded, rerr.Event)
	assert.Equal(t, "a", rerr.Label)
	assert.Equal(t, err, rec.fatal)
	assert.Equal(t, []string{"started a", "succeeded a"}, rec.Events())
	assert.Len(t, summary.Results, 1)
}

func TestRunWithFixedClockAndIDs(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg := registry(t, map[string]tweak.Action{"a": ok()}, "a")
	e := New(reg, WithRunIDs(func() string { return "run-1" }), WithClock(func() time.Time { return at }))

	summary, err := e.Run(context.Background(), tweak.Essential, []string{"a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, at, summary.StartedAt)
	assert.Equal(t, time.Duration(0), summary.Results[0].Duration())
}

func TestTrackerSeesWholeRun(t *testing.T) {
	reg := registry(t, map[string]tweak.Action{"a": ok(), "b": fail("x")}, "a", "b")
	tr := reporter.NewTracker("")

	_, err := New(reg).Run(context.Background(), tweak.Essential, []string{"a", "b"}, tr)
	require.NoError(t, err)
	items := tr.Items()
	require.Len(t, items, 2)
	assert.Equal(t, reporter.StatusCompleted, items[0].Status)
	assert.Equal(t, reporter.StatusFailed, items[1].Status)
}

func TestWorkerRejectsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	reg := registry(t, map[string]tweak.Action{
		"slow": tweak.ActionFunc(func(context.Context, tweak.Output) error {
			close(started)
			<-release
			return nil
		}),
	}, "slow")

	w := NewWorker(New(reg))
	var got tweak.Summary
	done := make(chan struct{})
	require.NoError(t, w.Start(context.Background(), tweak.Essential, []string{"slow"}, nil, func(s tweak.Summary, err error) {
		got = s
		close(done)
	}))
	<-started

	assert.True(t, w.Busy(tweak.Essential))
	err := w.Start(context.Background(), tweak.Essential, []string{"slow"}, nil, nil)
	assert.ErrorIs(t, err, ErrRunInProgress)

	// other categories are independent
	assert.NoError(t, w.Start(context.Background(), tweak.Advanced, nil, nil, nil))

	close(release)
	<-done
	w.Wait()
	assert.False(t, w.Busy(tweak.Essential))
	assert.Equal(t, 1, got.Succeeded)
}
