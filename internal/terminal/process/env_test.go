package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEnv(t *testing.T) {
	t.Setenv("TERM", "dumb")
	t.Setenv("LANG", "de_DE.UTF-8")
	t.Setenv("PTYTERM_TEST_INHERITED", "yes")

	env := buildEnv(Options{
		WorkingDir: "/tmp/work",
		Env:        []string{"FOO=bar", "LANG=fr_FR.UTF-8", "malformed", "=nokey"},
	})

	assert.Equal(t, DefaultTerm, lookupEnv(env, "TERM"))
	assert.Equal(t, "truecolor", lookupEnv(env, "COLORTERM"))
	assert.Equal(t, "/tmp/work", lookupEnv(env, "PWD"))
	assert.Equal(t, "yes", lookupEnv(env, "PTYTERM_TEST_INHERITED"))
	assert.Equal(t, "bar", lookupEnv(env, "FOO"))
	assert.Equal(t, "fr_FR.UTF-8", lookupEnv(env, "LANG"))
	assert.NotContains(t, env, "malformed")
}

func TestBuildEnv_DefaultsLang(t *testing.T) {
	t.Setenv("LANG", "")

	env := buildEnv(Options{Term: "xterm"})

	assert.Equal(t, "xterm", lookupEnv(env, "TERM"))
	assert.Equal(t, "C.UTF-8", lookupEnv(env, "LANG"))
}

func TestSetEnv_ReplacesInPlace(t *testing.T) {
	env := []string{"A=1", "AB=2"}
	env = setEnv(env, "A", "3")
	assert.Equal(t, []string{"A=3", "AB=2"}, env)
}
