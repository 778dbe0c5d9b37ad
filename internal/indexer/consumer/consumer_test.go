package consumer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/analytics"
)

type call struct {
	op   string
	path string
}

type fakeIndexer struct {
	calls []call
	err   error
}

func (f *fakeIndexer) UpdateFile(path string) error {
	f.calls = append(f.calls, call{"update", path})
	return f.err
}

func (f *fakeIndexer) RemoveFile(path string) error {
	f.calls = append(f.calls, call{"remove", path})
	return f.err
}

type trackerFunc func(any)

func (f trackerFunc) Track(event any) { f(event) }

func TestHandleMessageAppliesEvents(t *testing.T) {
	root := filepath.Join(t.TempDir(), "project")
	ix := &fakeIndexer{}
	var tracked []analytics.IndexEvent
	h := HandleMessage(ix, root, nil, trackerFunc(func(e any) {
		tracked = append(tracked, e.(analytics.IndexEvent))
	}))
	ctx := context.Background()

	require.NoError(t, h(ctx, nil, []byte(`{"path":"src/auth.py","op":"add"}`)))
	require.NoError(t, h(ctx, nil, []byte(`{"path":"src/auth.py","op":"change"}`)))
	require.NoError(t, h(ctx, nil, []byte(`{"path":"`+filepath.ToSlash(filepath.Join(root, "old.py"))+`","op":"unlink"}`)))

	assert.Equal(t, []call{
		{"update", filepath.Join(root, "src", "auth.py")},
		{"update", filepath.Join(root, "src", "auth.py")},
		{"remove", filepath.Join(root, "old.py")},
	}, ix.calls)
	require.Len(t, tracked, 3)
	assert.Equal(t, "remove", tracked[2].Op)
	assert.Equal(t, "kafka", tracked[2].Source)
}

func TestHandleMessageSkipsBadEvents(t *testing.T) {
	ix := &fakeIndexer{}
	h := HandleMessage(ix, "/srv/project", nil, nil)
	ctx := context.Background()

	for _, msg := range []string{
		`not json`,
		`{"path":"a.go","op":"rename"}`,
		`{"path":"../etc/passwd.c","op":"add"}`,
		`{"path":"","op":"add"}`,
	} {
		assert.NoError(t, h(ctx, nil, []byte(msg)), msg)
	}
	assert.Empty(t, ix.calls)
}

func TestHandleMessageReturnsEngineErrors(t *testing.T) {
	ix := &fakeIndexer{err: errors.New("engine closed")}
	h := HandleMessage(ix, "/srv/project", nil, nil)

	err := h(context.Background(), nil, []byte(`{"path":"a.go","op":"change"}`))
	assert.ErrorIs(t, err, ix.err)
}

func TestResolve(t *testing.T) {
	root := filepath.FromSlash("/srv/project")
	tests := []struct {
		root, path string
		want       string
		ok         bool
	}{
		{root, "a.go", filepath.Join(root, "a.go"), true},
		{root, filepath.Join(root, "pkg", "b.go"), filepath.Join(root, "pkg", "b.go"), true},
		{root, "pkg/../../x.go", "", false},
		{root, filepath.FromSlash("/srv/projectile/c.go"), "", false},
		{"", filepath.FromSlash("/abs/d.go"), filepath.FromSlash("/abs/d.go"), true},
		{"", "rel.go", "rel.go", false},
	}
	for _, tt := range tests {
		got, ok := resolve(tt.root, tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.path)
		}
	}
}

func TestRelativeRootAcceptsAbsoluteEvents(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	t.Chdir(dir)
	abs := filepath.Join(dir, "src", "auth.py")

	got, ok := resolve(".", abs)
	require.True(t, ok)
	assert.Equal(t, abs, got)

	got, ok = resolve(".", "src/auth.py")
	require.True(t, ok)
	assert.Equal(t, abs, got)

	_, ok = resolve(".", filepath.Join(filepath.Dir(dir), "elsewhere.py"))
	assert.False(t, ok)

	ix := &fakeIndexer{}
	h := HandleMessage(ix, ".", nil, nil)
	require.NoError(t, h(context.Background(), nil, []byte(`{"path":"`+filepath.ToSlash(abs)+`","op":"change"}`)))
	assert.Equal(t, []call{{"update", abs}}, ix.calls)
}
