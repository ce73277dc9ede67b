package process

import (
	"os"
	"strings"
)

// DefaultTerm is the TERM value advertised to child processes.
const DefaultTerm = "xterm-256color"

// buildEnv returns the inherited environment plus the terminal variables and
// the caller's extra KEY=VALUE entries, which take precedence.
func buildEnv(opts Options) []string {
	env := os.Environ()

	term := opts.Term
	if term == "" {
		term = DefaultTerm
	}
	env = setEnv(env, "TERM", term)
	env = setEnv(env, "COLORTERM", "truecolor")
	if opts.WorkingDir != "" {
		env = setEnv(env, "PWD", opts.WorkingDir)
	}
	if lookupEnv(env, "LANG") == "" {
		env = setEnv(env, "LANG", "C.UTF-8")
	}

	for _, kv := range opts.Env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env = setEnv(env, key, value)
	}
	return env
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

func lookupEnv(env []string, key string) string {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):]
		}
	}
	return ""
}
