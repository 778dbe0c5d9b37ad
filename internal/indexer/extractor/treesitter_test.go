//go:build cgo

package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSitterPython(t *testing.T) {
	src := []byte(`class AuthService:
    def login(self, user, password):
        return True

def read_file(path):
    return open(path).read()
`)

	symbols := New(NewTreeSitterParser()).Extract("auth.py", src, LangPython)

	assert.Equal(t, []string{"AuthService", "AuthService.login", "read_file"}, names(symbols))
	assert.Equal(t, KindMethod, find(t, symbols, "AuthService.login").Kind)
	assert.Equal(t, 5, find(t, symbols, "read_file").StartLine)
}

func TestTreeSitterGo(t *testing.T) {
	src := []byte(`package main

type Handler struct {
	db *Database
}

func NewHandler(db *Database) *Handler {
	return &Handler{db: db}
}

func (h *Handler) Get(id string) (*Item, error) {
	return h.db.Find(id)
}
`)

	symbols := New(NewTreeSitterParser()).Extract("handler.go", src, LangGo)

	assert.Equal(t, []string{"Handler", "NewHandler", "Handler.Get"}, names(symbols))
	assert.Equal(t, KindStruct, find(t, symbols, "Handler").Kind)
	assert.Equal(t, KindMethod, find(t, symbols, "Handler.Get").Kind)
}

func TestTreeSitterRust(t *testing.T) {
	src := []byte(`struct Engine;

impl Engine {
    fn search(&self) {}
}
`)

	symbols := New(NewTreeSitterParser()).Extract("lib.rs", src, LangRust)

	assert.Equal(t, []string{"Engine", "Engine::search"}, names(symbols))
}

func TestTreeSitterParseReturnsRoot(t *testing.T) {
	root, err := NewTreeSitterParser().Parse(context.Background(), []byte("x = 1\n"), LangPython)
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, "module", root.Kind())
	assert.Nil(t, root.ChildByFieldName("no_such_field"))
	assert.Nil(t, root.Child(99))
}

func TestTreeSitterUnknownLanguage(t *testing.T) {
	_, err := NewTreeSitterParser().Parse(context.Background(), []byte("x"), Language("cobol"))
	assert.ErrorIs(t, err, ErrNoGrammar)
}
