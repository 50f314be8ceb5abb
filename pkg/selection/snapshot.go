// pkg/selection/snapshot.go - export and import of the checkbox state as an INI file.

package selection

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/windowsadmins/tweaker/pkg/logging"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

// ImportFormatError means a snapshot file could not be parsed. Nothing was
// applied.
type ImportFormatError struct {
	Source string
	Err    error
}

func (e *ImportFormatError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid configuration file: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration file %s: %v", e.Source, e.Err)
}

func (e *ImportFormatError) Unwrap() error { return e.Err }

// ImportReport describes what an import changed.
type ImportReport struct {
	Applied int
	// Ignored lists "section/key" entries that match no known tweak.
	Ignored []string
}

// Labels may contain ':' so only '=' separates keys from values.
func writeOptions() ini.LoadOptions {
	return ini.LoadOptions{
		KeyValueDelimiters:       "=",
		KeyValueDelimiterOnWrite: "=",
	}
}

func loadOptions() ini.LoadOptions {
	opts := writeOptions()
	opts.Insensitive = true
	opts.SpaceBeforeInlineComment = true
	return opts
}

// Export writes every known label of every category with its checked flag.
// Sections use the legacy Section1..Section4 names so files can be shared
// with older releases.
func (s *State) Export(w io.Writer) error {
	f := ini.Empty(writeOptions())
	snap := s.Snapshot()

	for _, c := range s.registry.Categories() {
		sec, err := f.NewSection(c.LegacySection())
		if err != nil {
			return err
		}
		for _, label := range s.registry.Labels(c) {
			value := "False"
			if snap[c][label] {
				value = "True"
			}
			if _, err := sec.NewKey(label, value); err != nil {
				return fmt.Errorf("%s / %q: %w", c, label, err)
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// ExportFile writes the snapshot to path.
func (s *State) ExportFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Export(out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	logging.Info("Configuration exported", "path", path)
	return nil
}

// Import reads a snapshot and sets the flag of every key that names a known
// label. Unknown sections and keys are ignored; labels missing from the file
// keep their current value. The file is validated completely before any flag
// changes.
func (s *State) Import(r io.Reader) (ImportReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportReport{}, err
	}
	return s.importData(data, "")
}

// ImportFile imports the snapshot at path.
func (s *State) ImportFile(path string) (ImportReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportReport{}, err
	}
	report, err := s.importData(data, path)
	if err != nil {
		return report, err
	}
	logging.Info("Configuration imported", "path", path, "applied", report.Applied, "ignored", len(report.Ignored))
	return report, nil
}

type pending struct {
	category tweak.Category
	label    string
	on       bool
}

func (s *State) importData(data []byte, source string) (ImportReport, error) {
	var report ImportReport

	f, err := ini.LoadSources(loadOptions(), data)
	if err != nil {
		return report, &ImportFormatError{Source: source, Err: err}
	}

	var changes []pending
	for _, sec := range f.Sections() {
		if strings.EqualFold(sec.Name(), ini.DefaultSection) && len(sec.Keys()) == 0 {
			continue
		}
		category, err := tweak.ParseCategory(sec.Name())
		if err != nil {
			for _, k := range sec.Keys() {
				report.Ignored = append(report.Ignored, sec.Name()+"/"+k.Name())
			}
			continue
		}

		byKey := make(map[string]string)
		for _, l := range s.registry.Labels(category) {
			byKey[strings.ToLower(l)] = l
		}

		for _, k := range sec.Keys() {
			label, ok := byKey[strings.ToLower(strings.TrimSpace(k.Name()))]
			if !ok {
				report.Ignored = append(report.Ignored, sec.Name()+"/"+k.Name())
				continue
			}
			on, err := k.Bool()
			if err != nil {
				return ImportReport{}, &ImportFormatError{
					Source: source,
					Err:    fmt.Errorf("[%s] %s: %q is not a boolean", sec.Name(), k.Name(), k.Value()),
				}
			}
			changes = append(changes, pending{category: category, label: label, on: on})
		}
	}

	s.mu.Lock()
	for _, c := range changes {
		s.set(c.category, c.label, c.on)
	}
	s.mu.Unlock()

	report.Applied = len(changes)
	for _, ig := range report.Ignored {
		logging.Debug("Ignoring unknown configuration key", "key", ig)
	}
	return report, nil
}
