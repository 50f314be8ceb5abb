package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/tweaker/pkg/catalog"
	"github.com/windowsadmins/tweaker/pkg/selection"
	"github.com/windowsadmins/tweaker/pkg/tweak"
)

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	noop := tweak.ActionFunc(func(context.Context, tweak.Output) error { return nil })
	reg := catalog.New()
	for _, d := range []tweak.Descriptor{
		{Label: "Create Restore Point", Category: tweak.Essential},
		{Label: "Disable Telemetry", Category: tweak.Essential},
		{Label: "Remove Edge", Category: tweak.Advanced},
		{Label: "Google Chrome", Category: tweak.Software, Group: "Browsers"},
		{Label: "Mozilla Firefox", Category: tweak.Software, Group: "Browsers"},
		{Label: "VLC", Category: tweak.Software, Group: "Multimedia"},
	} {
		d.Action = noop
		require.NoError(t, reg.Register(d))
	}
	reg.Seal()
	return reg
}

func TestParseFlags(t *testing.T) {
	opts, fs, err := parseFlags([]string{"-c", "software", "-s", "VLC", "--select", "Google Chrome", "-vv"})
	require.NoError(t, err)
	assert.Equal(t, "software", opts.category)
	assert.Equal(t, []string{"VLC", "Google Chrome"}, opts.selects)
	assert.Equal(t, 2, opts.verbosity)
	assert.True(t, fs.Changed("category"))

	opts, fs, err = parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "essential", opts.category)
	assert.False(t, fs.Changed("category"))

	_, _, err = parseFlags([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestPrintCatalogGroupsLabels(t *testing.T) {
	var buf bytes.Buffer
	printCatalog(&buf, testRegistry(t))
	out := buf.String()

	assert.Contains(t, out, "Essential Tweaks (essential)\n  Create Restore Point\n  Disable Telemetry\n")
	assert.Contains(t, out, "Install Software (software)\n  Browsers\n    Google Chrome\n    Mozilla Firefox\n  Multimedia\n    VLC\n")
}

func TestPrepareSelection(t *testing.T) {
	reg := testRegistry(t)

	t.Run("select", func(t *testing.T) {
		state := selection.NewState(reg)
		opts := &options{category: "software", selects: []string{"VLC"}}
		cats, err := prepareSelection(opts, true, state)
		require.NoError(t, err)
		assert.Equal(t, []tweak.Category{tweak.Software}, cats)
		assert.Equal(t, []string{"VLC"}, state.Selection(tweak.Software))
	})

	t.Run("all", func(t *testing.T) {
		state := selection.NewState(reg)
		opts := &options{category: "essential", all: true}
		_, err := prepareSelection(opts, false, state)
		require.NoError(t, err)
		assert.Equal(t, []string{"Create Restore Point", "Disable Telemetry"}, state.Selection(tweak.Essential))
	})

	t.Run("unknown label", func(t *testing.T) {
		state := selection.NewState(reg)
		opts := &options{category: "essential", selects: []string{"VLC"}}
		_, err := prepareSelection(opts, true, state)
		var unknown *catalog.UnknownActionError
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("unknown category", func(t *testing.T) {
		state := selection.NewState(reg)
		_, err := prepareSelection(&options{category: "nope"}, true, state)
		assert.Error(t, err)
	})

	t.Run("import runs every category", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tweaks.ini")
		require.NoError(t, os.WriteFile(path, []byte("[Section2]\nRemove Edge = True\n[Section4]\nVLC = True\n"), 0o644))

		state := selection.NewState(reg)
		opts := &options{category: "essential", importPath: path}
		cats, err := prepareSelection(opts, false, state)
		require.NoError(t, err)
		assert.Equal(t, tweak.Categories, cats)
		assert.Equal(t, []string{"Remove Edge"}, state.Selection(tweak.Advanced))
		assert.Equal(t, []string{"VLC"}, state.Selection(tweak.Software))
	})

	t.Run("bad import", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tweaks.ini")
		require.NoError(t, os.WriteFile(path, []byte("[Section4]\nVLC = perhaps\n"), 0o644))

		state := selection.NewState(reg)
		_, err := prepareSelection(&options{category: "software", importPath: path}, true, state)
		var formatErr *selection.ImportFormatError
		assert.ErrorAs(t, err, &formatErr)
		assert.Empty(t, state.Selection(tweak.Software))
	})
}

func TestNeedsElevation(t *testing.T) {
	reg := testRegistry(t)
	state := selection.NewState(reg)
	cats := []tweak.Category{tweak.Software}

	assert.False(t, needsElevation(&options{}, state, cats))
	require.NoError(t, state.Set(tweak.Software, "VLC", true))
	assert.True(t, needsElevation(&options{}, state, cats))
	assert.False(t, needsElevation(&options{noElevate: true}, state, cats))
}
