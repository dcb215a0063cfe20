package envfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize(t *testing.T) {
	t.Run("copies the file", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, ".env")
		dst := filepath.Join(dir, "copy.env")
		require.NoError(t, os.WriteFile(src, []byte("POSTGRES_PASSWORD=hunter2\n"), 0o600))

		require.NoError(t, Materialize(src, dst))

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "POSTGRES_PASSWORD=hunter2\n", string(data))
	})

	t.Run("overwrites an existing destination", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, ".env")
		dst := filepath.Join(dir, "copy.env")
		require.NoError(t, os.WriteFile(src, []byte("A=new\n"), 0o644))
		require.NoError(t, os.WriteFile(dst, []byte("A=stale\n"), 0o644))

		require.NoError(t, Materialize(src, dst))

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "A=new\n", string(data))
	})

	t.Run("missing source is a typed error", func(t *testing.T) {
		dir := t.TempDir()
		err := Materialize(filepath.Join(dir, "nope.env"), filepath.Join(dir, "copy.env"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingSource)
		assert.Contains(t, err.Error(), ".env.example", "the error tells the operator how to fix it")
	})

	t.Run("missing destination directory fails", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(src, []byte("A=1\n"), 0o644))

		err := Materialize(src, filepath.Join(dir, "missing", "sub", ".env"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("parses keys", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(path, []byte("A=1\nB=\"two words\"\n# comment\n"), 0o644))

		env, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"A": "1", "B": "two words"}, env)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
		assert.ErrorIs(t, err, ErrMissingSource)
	})
}

func TestMissingKeys(t *testing.T) {
	env := map[string]string{
		"POSTGRES_PASSWORD": "hunter2",
		"JWT_SECRET":        "",
		"ANON_KEY":          "anon",
	}
	required := []string{"POSTGRES_PASSWORD", "JWT_SECRET", "ANON_KEY", "SERVICE_ROLE_KEY"}

	missing := MissingKeys(env, required)
	assert.Equal(t, []string{"JWT_SECRET", "SERVICE_ROLE_KEY"}, missing, "empty values count as missing")
}

func TestMissingKeys_AllPresent(t *testing.T) {
	env := map[string]string{"A": "1", "B": "2"}
	assert.Empty(t, MissingKeys(env, []string{"A", "B"}))
}
