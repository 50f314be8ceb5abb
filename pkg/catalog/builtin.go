// pkg/catalog/builtin.go - the compiled-in tweak catalog, decoded from catalog.yaml.

package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/tweaker/pkg/system"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

//go:embed catalog.yaml
var builtinYAML []byte

// Options tune values substituted into the built-in catalog.
type Options struct {
	RestorePointDescription string
}

type document struct {
	Categories []categorySpec `yaml:"categories"`
}

type categorySpec struct {
	Category string      `yaml:"category"`
	Tweaks   []tweakSpec `yaml:"tweaks"`
}

type tweakSpec struct {
	Label      string     `yaml:"label"`
	Group      string     `yaml:"group"`
	BestEffort bool       `yaml:"best_effort"`
	Requires   string     `yaml:"requires"`
	Steps      []stepSpec `yaml:"steps"`
}

type regSpec struct {
	Key    string  `yaml:"key"`
	Name   string  `yaml:"name"`
	DWord  *uint32 `yaml:"dword"`
	String *string `yaml:"string"`
}

type servicesSpec struct {
	Names []string `yaml:"names"`
	Start string   `yaml:"start"`
}

type taskSpec struct {
	Path   string `yaml:"path"`
	Enable bool   `yaml:"enable"`
}

type wingetSpec struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Uninstall bool   `yaml:"uninstall"`
}

type stepSpec struct {
	Reg                *regSpec      `yaml:"reg"`
	RegDelete          *regSpec      `yaml:"reg_delete"`
	Services           *servicesSpec `yaml:"services"`
	Task               *taskSpec     `yaml:"task"`
	Run                []string      `yaml:"run"`
	Cmd                string        `yaml:"cmd"`
	PowerShell         string        `yaml:"powershell"`
	Winget             *wingetSpec   `yaml:"winget"`
	Appx               []string      `yaml:"appx"`
	Detached           []string      `yaml:"detached"`
	Purge              *string       `yaml:"purge"`
	Notice             string        `yaml:"notice"`
	WarnIfRunning      string        `yaml:"warn_if_running"`
	WarnUnlessPortable *string       `yaml:"warn_unless_portable"`
	BestEffort         bool          `yaml:"best_effort"`
}

// Builtin returns the sealed registry of every tweak shipped with the binary,
// bound to host.
func Builtin(host system.Host, opts Options) (*Registry, error) {
	reg, err := Load(builtinYAML, host, opts)
	if err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	reg.Seal()
	return reg, nil
}

// Load decodes a catalog document into a new, unsealed registry.
func Load(data []byte, host system.Host, opts Options) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	subst := strings.NewReplacer("{{RestorePointDescription}}", escapePS(opts.RestorePointDescription))
	reg := New()
	for _, cs := range doc.Categories {
		category, err := tweak.ParseCategory(cs.Category)
		if err != nil {
			return nil, err
		}
		for _, ts := range cs.Tweaks {
			steps, err := buildSteps(ts.Steps, subst)
			if err != nil {
				return nil, fmt.Errorf("%s / %q: %w", category, ts.Label, err)
			}
			if len(steps) == 0 {
				return nil, fmt.Errorf("%s / %q: no steps", category, ts.Label)
			}
			err = reg.Register(tweak.Descriptor{
				Label:    ts.Label,
				Category: category,
				Group:    ts.Group,
				Action: &tweak.Tweak{
					Steps:      steps,
					BestEffort: ts.BestEffort,
					Requires:   ts.Requires,
					Host:       host,
				},
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

func escapePS(s string) string {
	if s == "" {
		s = "Tweaker Restore Point"
	}
	return strings.ReplaceAll(s, "'", "''")
}

func buildSteps(specs []stepSpec, subst *strings.Replacer) ([]tweak.Step, error) {
	var steps []tweak.Step
	for i, spec := range specs {
		built, err := buildStep(spec, subst)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if spec.BestEffort {
			for j := range built {
				built[j] = tweak.Optional(built[j])
			}
		}
		steps = append(steps, built...)
	}
	return steps, nil
}

// buildStep turns one spec into steps. List forms (services, appx) expand to
// one step per entry.
func buildStep(s stepSpec, subst *strings.Replacer) ([]tweak.Step, error) {
	var out []tweak.Step
	kinds := 0
	add := func(steps ...tweak.Step) {
		kinds++
		out = append(out, steps...)
	}

	if s.Reg != nil {
		step, err := buildRegValue(*s.Reg)
		if err != nil {
			return nil, err
		}
		add(step)
	}
	if s.RegDelete != nil {
		root, path, err := system.ParseKey(s.RegDelete.Key)
		if err != nil {
			return nil, err
		}
		add(&tweak.RegistryDelete{Root: root, Path: path, Name: s.RegDelete.Name})
	}
	if s.Services != nil {
		start, err := system.ParseStartType(s.Services.Start)
		if err != nil {
			return nil, err
		}
		var steps []tweak.Step
		for _, name := range s.Services.Names {
			steps = append(steps, &tweak.ServiceStartup{Name: name, Start: start})
		}
		add(steps...)
	}
	if s.Task != nil {
		add(&tweak.ScheduledTask{Path: s.Task.Path, Enable: s.Task.Enable})
	}
	if len(s.Run) > 0 {
		add(&tweak.Command{Program: s.Run[0], Args: s.Run[1:]})
	}
	if s.Cmd != "" {
		add(&tweak.Shell{Script: subst.Replace(s.Cmd)})
	}
	if s.PowerShell != "" {
		add(&tweak.Shell{Script: subst.Replace(s.PowerShell), PowerShell: true})
	}
	if s.Winget != nil {
		if s.Winget.ID == "" && s.Winget.Name == "" {
			return nil, fmt.Errorf("winget step needs an id or a name")
		}
		add(&tweak.Winget{ID: s.Winget.ID, Name: s.Winget.Name, Uninstall: s.Winget.Uninstall})
	}
	if len(s.Appx) > 0 {
		var steps []tweak.Step
		for _, pkg := range s.Appx {
			steps = append(steps, &tweak.AppxRemove{Package: pkg})
		}
		add(steps...)
	}
	if len(s.Detached) > 0 {
		add(&tweak.Detached{Program: s.Detached[0], Args: s.Detached[1:]})
	}
	if s.Purge != nil {
		add(&tweak.PurgeDir{Dir: *s.Purge})
	}
	if s.Notice != "" {
		add(&tweak.Notice{Message: s.Notice})
	}
	if s.WarnIfRunning != "" {
		add(&tweak.RunningCheck{Process: s.WarnIfRunning})
	}
	if s.WarnUnlessPortable != nil {
		add(&tweak.PortableCheck{Message: *s.WarnUnlessPortable})
	}

	if kinds != 1 {
		return nil, fmt.Errorf("expected exactly one operation, found %d", kinds)
	}
	return out, nil
}

func buildRegValue(r regSpec) (tweak.Step, error) {
	root, path, err := system.ParseKey(r.Key)
	if err != nil {
		return nil, err
	}
	switch {
	case r.DWord != nil && r.String != nil:
		return nil, fmt.Errorf("%s\\%s: both dword and string given", r.Key, r.Name)
	case r.DWord != nil:
		return tweak.SetDWORD(root, path, r.Name, *r.DWord), nil
	case r.String != nil:
		return tweak.SetString(root, path, r.Name, *r.String), nil
	}
	return nil, fmt.Errorf("%s\\%s: no value given", r.Key, r.Name)
}
