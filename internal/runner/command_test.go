package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Args(t *testing.T) {
	cfg := Config{
		Command:   "nant",
		Arguments: []string{"-buildfile:{{.File}}", "-D:dir={{.Dir}}", "{{if false}}x{{end}}", "{{.Target}}"},
	}

	args, err := cfg.Args("/src/app/default.build", "build")
	require.NoError(t, err)
	assert.Equal(t, []string{"-buildfile:/src/app/default.build", "-D:dir=/src/app", "build"}, args)
	assert.Equal(t, "nant -buildfile:/src/app/default.build -D:dir=/src/app build", cfg.CommandLine("/src/app/default.build", "build"))
}

func TestConfig_ArgsRejectsBadTemplates(t *testing.T) {
	_, err := Config{Arguments: []string{"{{.File"}}.Args("a.build", "t")
	require.Error(t, err)

	_, err = Config{Arguments: []string{"{{.Unknown}}"}}.Args("a.build", "t")
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "nant", cfg.Command)
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.CaptureStderr)

	args, err := cfg.Args("default.build", "clean")
	require.NoError(t, err)
	assert.Equal(t, []string{"-buildfile:default.build", "clean"}, args)
}

func TestConfig_Environ(t *testing.T) {
	base := []string{"PATH=/bin"}
	assert.Equal(t, base, Config{}.environ(base))
	assert.Equal(t, []string{"PATH=/bin", "FOO=bar"}, Config{Env: map[string]string{"FOO": "bar"}}.environ(base))
}
