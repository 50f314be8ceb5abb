package tweak

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/tweaker/pkg/system"
)

type recordedOutput struct {
	infos []string
	warns []string
}

func (o *recordedOutput) Info(msg string, _ ...interface{}) { o.infos = append(o.infos, msg) }
func (o *recordedOutput) Warn(msg string, _ ...interface{}) { o.warns = append(o.warns, msg) }

const dataCollection = `SOFTWARE\Policies\Microsoft\Windows\DataCollection`

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"essential", "Essential Tweaks", "section1", "SECTION1"} {
		c, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, Essential, c, in)
	}
	c, err := ParseCategory("Install Software")
	require.NoError(t, err)
	assert.Equal(t, "software", c.Key())
	assert.Equal(t, "Section4", c.LegacySection())

	_, err = ParseCategory("Section5")
	assert.Error(t, err)
}

func TestTweakAppliesStepsInOrder(t *testing.T) {
	f := system.NewFake()
	tw := &Tweak{
		Host: f.Host(),
		Steps: []Step{
			SetDWORD(system.LocalMachine, dataCollection, "AllowTelemetry", 0),
			SetString(system.CurrentUser, `Control Panel\Keyboard`, "InitialKeyboardIndicators", "0"),
			&ServiceStartup{Name: "WlanSvc", Start: system.StartManual},
		},
	}

	out := &recordedOutput{}
	require.NoError(t, tw.Apply(context.Background(), out))
	assert.Empty(t, out.warns)
	assert.Len(t, out.infos, 3)
	assert.Equal(t, `Command: reg add "HKLM\`+dataCollection+`" /v "AllowTelemetry" /t REG_DWORD /d 0 /f`, out.infos[0])

	v, ok := f.Value(system.LocalMachine, dataCollection, "AllowTelemetry")
	require.True(t, ok)
	assert.Equal(t, uint32(0), v)
	start, ok := f.StartTypeOf("wlansvc")
	require.True(t, ok)
	assert.Equal(t, system.StartManual, start)
}

func TestTweakHardFailureStopsAndWraps(t *testing.T) {
	f := system.NewFake()
	denied := errors.New("access denied")
	f.FailRegistry(system.LocalMachine, dataCollection, "AllowTelemetry", denied)
	tw := &Tweak{
		Host: f.Host(),
		Steps: []Step{
			SetDWORD(system.LocalMachine, dataCollection, "AllowTelemetry", 0),
			SetDWORD(system.LocalMachine, dataCollection, "Other", 0),
		},
	}

	err := tw.Apply(context.Background(), &recordedOutput{})
	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, KindAction, Classify(err))
	assert.Len(t, f.CallLog(), 1)
}

func TestTweakBestEffortWarnsAndStops(t *testing.T) {
	f := system.NewFake()
	f.SetResult("powercfg", system.Result{ExitCode: 1})
	tw := &Tweak{
		Host:       f.Host(),
		BestEffort: true,
		Steps: []Step{
			&Command{Program: "powercfg", Args: []string{"/h", "off"}},
			&Command{Program: "never", Args: nil},
		},
	}

	out := &recordedOutput{}
	require.NoError(t, tw.Apply(context.Background(), out))
	require.Len(t, out.warns, 1)
	assert.Contains(t, out.warns[0], "partially failed")
	assert.Equal(t, []string{"run powercfg /h off"}, f.CallLog())
}

func TestOptionalStepContinues(t *testing.T) {
	f := system.NewFake()
	f.FailService("dmwappushservice", errors.New("no such service"))
	tw := &Tweak{
		Host: f.Host(),
		Steps: []Step{
			Optional(&ServiceStartup{Name: "dmwappushservice", Start: system.StartManual}),
			Optional(&ServiceStartup{Name: "lfsvc", Start: system.StartManual}),
		},
	}

	out := &recordedOutput{}
	require.NoError(t, tw.Apply(context.Background(), out))
	assert.Len(t, out.warns, 1)
	_, ok := f.StartTypeOf("lfsvc")
	assert.True(t, ok)
}

func TestTimeoutIsNeverDowngraded(t *testing.T) {
	f := system.NewFake()
	f.FailCommand("DISM", &system.TimeoutError{Command: "DISM", Timeout: time.Minute})
	tw := &Tweak{
		Host:       f.Host(),
		BestEffort: true,
		Steps:      []Step{Optional(&Command{Program: "DISM", Args: []string{"/Online"}})},
	}

	err := tw.Apply(context.Background(), &recordedOutput{})
	require.Error(t, err)
	assert.Equal(t, KindTimeout, Classify(err))
}

func TestRequiresSkipsOnOlderWindows(t *testing.T) {
	f := system.NewFake()
	f.Version = "10.0.19045"
	tw := &Tweak{
		Host:     f.Host(),
		Requires: ">= 10.0.26100",
		Steps:    []Step{&Command{Program: "DISM"}},
	}

	out := &recordedOutput{}
	require.NoError(t, tw.Apply(context.Background(), out))
	require.Len(t, out.warns, 1)
	assert.Contains(t, out.warns[0], "Not applicable")
	assert.Empty(t, f.CallLog())
}

func TestRegistryDeleteIgnoresMissingValue(t *testing.T) {
	f := system.NewFake()
	step := &RegistryDelete{Root: system.CurrentUser, Path: `SOFTWARE\Microsoft\Siuf\Rules`, Name: "PeriodInNanoSeconds"}
	assert.NoError(t, step.Apply(context.Background(), f.Host(), &recordedOutput{}))
}

func TestStepDescriptions(t *testing.T) {
	assert.Equal(t,
		`winget install --id Google.Chrome -e --accept-source-agreements --accept-package-agreements`,
		(&Winget{ID: "Google.Chrome"}).Describe())
	assert.Equal(t,
		`winget uninstall "Microsoft Edge" --accept-source-agreements`,
		(&Winget{Name: "Microsoft Edge", Uninstall: true}).Describe())
	assert.Equal(t,
		`schtasks /Change /TN \NVIDIA\NvTmMon /DISABLE`,
		(&ScheduledTask{Path: `\NVIDIA\NvTmMon`}).Describe())
	assert.Equal(t,
		`sc config "WlanSvc" start= demand`,
		(&ServiceStartup{Name: "WlanSvc", Start: system.StartManual}).Describe())
	assert.Equal(t,
		`powershell -Command Get-AppxPackage 'Microsoft.BingNews' | Remove-AppxPackage`,
		(&AppxRemove{Package: "Microsoft.BingNews"}).Describe())
	assert.Contains(t,
		SetString(system.CurrentUser, `Software\Classes\CLSID\{86ca1aa0-34aa-4e8b-a509-50c905bae2a2}\InprocServer32`, "", "").Describe(),
		"/ve /t REG_SZ")
}

func TestNoticeAndChecksOnlyWarn(t *testing.T) {
	f := system.NewFake()
	f.SetRunning("msedge.exe")
	tw := &Tweak{
		Host: f.Host(),
		Steps: []Step{
			&Notice{Message: "not automated yet"},
			&RunningCheck{Process: "msedge"},
			&PortableCheck{},
		},
	}
	out := &recordedOutput{}
	require.NoError(t, tw.Apply(context.Background(), out))
	assert.Len(t, out.warns, 3)
	assert.Empty(t, out.infos)
}

func TestPurgeDirRemovesContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tmp"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deep"), 0755))

	step := &PurgeDir{Dir: dir}
	require.NoError(t, step.Apply(context.Background(), system.Host{}, &recordedOutput{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPurgeDirMissing(t *testing.T) {
	step := &PurgeDir{Dir: filepath.Join(t.TempDir(), "gone")}
	assert.Error(t, step.Apply(context.Background(), system.Host{}, &recordedOutput{}))
}

func TestSummaryAdd(t *testing.T) {
	var s Summary
	s.Add(Result{Outcome: Succeeded})
	s.Add(Result{Outcome: Warned})
	s.Add(Result{Outcome: Failed})
	s.Add(Result{Outcome: Skipped})
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Warned)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Len(t, s.Results, 4)
}
