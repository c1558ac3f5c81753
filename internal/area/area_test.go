package area_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alkime/screenrec/internal/area"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePicker(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake-slurp")
	//nolint:gosec // test helper needs an executable
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantGeom string
		wantOK   bool
	}{
		{name: "region drawn", script: `echo "10,20 300x200"`, wantGeom: "10,20 300x200", wantOK: true},
		{name: "cancelled", script: `echo "selection cancelled" >&2; exit 1`},
		{name: "empty output", script: `echo "   "`},
		{name: "output but failure", script: `echo "1,1 2x2"; exit 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := area.NewPicker(writePicker(t, tt.script), nil)

			geom, ok, err := p.Select(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantGeom, geom)
		})
	}
}

func TestSelect_MissingBinary(t *testing.T) {
	p := area.NewPicker(filepath.Join(t.TempDir(), "nope"), nil)

	_, _, err := p.Select(context.Background())
	require.ErrorIs(t, err, area.ErrPickerNotFound)

	p = area.NewPicker("screenrec-no-such-picker", nil)
	_, _, err = p.Select(context.Background())
	require.ErrorIs(t, err, area.ErrPickerNotFound)
}

func TestSelect_Cancelled(t *testing.T) {
	p := area.NewPicker(writePicker(t, "sleep 30"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	began := time.Now()
	_, ok, err := p.Select(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ok)
	assert.Less(t, time.Since(began), 5*time.Second)
}

func TestNewPicker_DefaultsToSlurp(t *testing.T) {
	assert.Equal(t, "slurp", area.NewPicker("", nil).Bin)
}

type fakeSelector struct {
	geom string
	ok   bool
	err  error
}

func (f fakeSelector) Select(context.Context) (string, bool, error) { return f.geom, f.ok, f.err }

type fakeStore struct {
	calls int
	last  *string
	err   error
}

func (f *fakeStore) SetGeometry(g *string) error {
	f.calls++
	f.last = g

	return f.err
}

func TestChoose(t *testing.T) {
	store := &fakeStore{}

	got, err := area.Choose(context.Background(), fakeSelector{geom: "0,0 5x5", ok: true}, store)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0,0 5x5", *got)
	assert.Equal(t, "0,0 5x5", *store.last)

	got, err = area.Choose(context.Background(), fakeSelector{}, store)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, store.last, "cancel resets to full screen")
	assert.Equal(t, 2, store.calls)
}

func TestChoose_PickerMissingLeavesGeometryAlone(t *testing.T) {
	store := &fakeStore{}

	_, err := area.Choose(context.Background(), fakeSelector{err: area.ErrPickerNotFound}, store)
	require.ErrorIs(t, err, area.ErrPickerNotFound)
	assert.Zero(t, store.calls)
}

func TestChoose_SaveFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}

	got, err := area.Choose(context.Background(), fakeSelector{geom: "1,1 1x1", ok: true}, store)
	require.Error(t, err)
	require.NotNil(t, got)
}

func TestDescribe(t *testing.T) {
	g := "1,2 3x4"
	empty := ""

	assert.Equal(t, "Area: 1,2 3x4", area.Describe(&g))
	assert.Equal(t, "Full Screen", area.Describe(nil))
	assert.Equal(t, "Full Screen", area.Describe(&empty))
}
