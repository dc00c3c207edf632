package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCUE(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCompileFiles(t *testing.T) {
	dir := t.TempDir()
	person := writeCUE(t, dir, "person.cue", personCUE)
	film := writeCUE(t, dir, "film.cue", `model: Film: {
	purpose: "Shorts."
	key: "title"
	attributes: {title: string, year: int}
}`)

	specs, err := CompileFiles(person, film)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "Person", specs[0].Name)
	assert.Equal(t, "Film", specs[1].Name)
}

func TestCompileFiles_ValidationErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeCUE(t, dir, "bad.cue", `model: Person: {
	purpose: "x"
	key: "id"
	attributes: name: string
}`)

	_, err := CompileFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrUndeclaredKeyAttr)
}

func TestCompileFiles_DuplicateModels(t *testing.T) {
	dir := t.TempDir()
	a := writeCUE(t, dir, "a.cue", `model: Film: {purpose: "x", attributes: title: string}`)
	b := writeCUE(t, dir, "b.cue", `model: Film: {purpose: "y", attributes: title: string}`)

	_, err := CompileFiles(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate model name")
}

func TestCompileFiles_SyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := writeCUE(t, dir, "broken.cue", `model: Person: {`)

	_, err := CompileFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompileFiles_MissingFile(t *testing.T) {
	_, err := CompileFiles(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read model file")
}

func TestJoinValidationErrors(t *testing.T) {
	assert.NoError(t, JoinValidationErrors(nil))

	err := JoinValidationErrors([]ValidationError{
		{Field: "a", Message: "one", Code: "E101"},
		{Field: "b", Message: "two", Code: "E102"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[E101] a: one")
	assert.Contains(t, err.Error(), "[E102] b: two")
}
