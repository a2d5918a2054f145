// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/datakit/pkg/types"
)

func standalone(origin, name string) types.SourceEntry {
	return types.SourceEntry{
		Kind:       types.SourceFile,
		Origin:     origin,
		LocalPath:  origin,
		RelPath:    name,
		Standalone: true,
		Size:       -1,
	}
}

func treeMember(origin, rel string) types.SourceEntry {
	return types.SourceEntry{
		Kind:      types.SourceDirectory,
		Origin:    origin,
		LocalPath: origin,
		RelPath:   rel,
		Size:      -1,
	}
}

func TestPlanNaturalPaths(t *testing.T) {
	entries := []types.SourceEntry{
		standalone("/home/u/a.txt", "a.txt"),
		treeMember("/src/dir/x.csv", "dir/x.csv"),
		treeMember("/src/dir/sub/y.csv", "dir/sub/y.csv"),
	}

	placements, err := Plan(entries, Options{})
	require.NoError(t, err)
	require.Len(t, placements, 3)
	assert.Equal(t, "a.txt", placements[0].Dest)
	assert.Equal(t, "dir/x.csv", placements[1].Dest)
	assert.Equal(t, "dir/sub/y.csv", placements[2].Dest)
	for _, p := range placements {
		assert.False(t, p.Supersede)
	}
}

func TestPlanTargets(t *testing.T) {
	entries := []types.SourceEntry{
		standalone("/a/one.dat", "one.dat"),
		standalone("/a/two.dat", "two.dat"),
	}

	placements, err := Plan(entries, Options{Targets: []string{"renamed/first.dat", "second.dat"}})
	require.NoError(t, err)
	assert.Equal(t, "renamed/first.dat", placements[0].Dest)
	assert.Equal(t, "second.dat", placements[1].Dest)
}

func TestPlanTargetCountMismatch(t *testing.T) {
	entries := []types.SourceEntry{
		standalone("/a/one.dat", "one.dat"),
		standalone("/a/two.dat", "two.dat"),
	}

	_, err := Plan(entries, Options{Targets: []string{"only-one.dat"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTargetMismatch)
	assert.Contains(t, err.Error(), "1 target(s) for 2 source(s)")
}

func TestPlanRelativeRoot(t *testing.T) {
	tests := []struct {
		name    string
		entry   types.SourceEntry
		root    string
		want    string
		wantErr error
	}{
		{
			name:  "tree member under root",
			entry: treeMember("/src/data/sub/file.csv", "data/sub/file.csv"),
			root:  "data",
			want:  "sub/file.csv",
		},
		{
			name:  "root with trailing slash",
			entry: treeMember("/src/data/sub/file.csv", "data/sub/file.csv"),
			root:  "data/",
			want:  "sub/file.csv",
		},
		{
			name:  "standalone strips origin prefix",
			entry: standalone("/home/u/project/raw/f.txt", "f.txt"),
			root:  "/home/u/project",
			want:  "raw/f.txt",
		},
		{
			name:    "tree member outside root",
			entry:   treeMember("/src/other/file.csv", "other/file.csv"),
			root:    "data",
			wantErr: ErrRelativeRootMismatch,
		},
		{
			name:    "prefix must end on a path boundary",
			entry:   treeMember("/src/database/file.csv", "database/file.csv"),
			root:    "data",
			wantErr: ErrRelativeRootMismatch,
		},
		{
			name:    "entry equal to root",
			entry:   treeMember("/src/data", "data"),
			root:    "data",
			wantErr: ErrRelativeRootMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			placements, err := Plan([]types.SourceEntry{tt.entry}, Options{RelativeRoot: tt.root})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, placements[0].Dest)
		})
	}
}

func TestPlanConflictWithExisting(t *testing.T) {
	entries := []types.SourceEntry{standalone("/a/data.csv", "data.csv")}
	existing := map[string]bool{"data.csv": true}

	_, err := Plan(entries, Options{Existing: existing})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDestinationConflict)

	placements, err := Plan(entries, Options{Existing: existing, Force: true})
	require.NoError(t, err)
	assert.True(t, placements[0].Supersede)
}

func TestPlanDuplicateWithinPlan(t *testing.T) {
	entries := []types.SourceEntry{
		standalone("/a/data.csv", "data.csv"),
		standalone("/b/data.csv", "data.csv"),
	}

	// Two sources flattening to the same basename collide even with
	// force: force only replaces records that exist before the plan.
	for _, force := range []bool{false, true} {
		_, err := Plan(entries, Options{Force: force})
		assert.ErrorIs(t, err, ErrDestinationConflict)
	}
}

func TestPlanRejectsTraversal(t *testing.T) {
	tests := []struct {
		name    string
		entries []types.SourceEntry
		opts    Options
	}{
		{
			name:    "target with parent segment",
			entries: []types.SourceEntry{standalone("/a/x", "x")},
			opts:    Options{Targets: []string{"../outside"}},
		},
		{
			name:    "target that cleans to parent",
			entries: []types.SourceEntry{standalone("/a/x", "x")},
			opts:    Options{Targets: []string{"sub/../../outside"}},
		},
		{
			name:    "absolute target",
			entries: []types.SourceEntry{standalone("/a/x", "x")},
			opts:    Options{Targets: []string{"/etc/passwd"}},
		},
		{
			name:    "entry with traversal in natural path",
			entries: []types.SourceEntry{treeMember("/src/../x", "../x")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.entries, tt.opts)
			assert.ErrorIs(t, err, ErrPathTraversal)
		})
	}
}

func TestNormalizeDest(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a.txt", want: "a.txt"},
		{in: "dir/sub/f.csv", want: "dir/sub/f.csv"},
		{in: "dir//sub/./f.csv", want: "dir/sub/f.csv"},
		{in: "dir/inner/../f.csv", want: "dir/f.csv"},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "..", wantErr: true},
		{in: "../f", wantErr: true},
		{in: "a/../../f", wantErr: true},
		{in: "/abs/f", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeDest(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeDest(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeDest(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeDest(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
