package tool

import (
	"os"
	"runtime"
	"strings"
)

// SanitizedEnv returns the process environment with interactive
// features disabled, so spawned commands never wait on a prompt,
// a pager, or a TTY.
func SanitizedEnv() []string {
	overrides := map[string]string{
		"CI":             "true",
		"NONINTERACTIVE": "1",
		"NO_TTY":         "1",
		"NO_COLOR":       "1",
		"PAGER":          "cat",
		"GIT_PAGER":      "cat",
	}
	if runtime.GOOS != "windows" {
		overrides["TERM"] = "dumb"
		overrides["DEBIAN_FRONTEND"] = "noninteractive"
		overrides["LESS"] = "-FX"
		overrides["LC_ALL"] = "en_US.UTF-8"
	}

	env := os.Environ()
	out := make([]string, 0, len(env)+len(overrides))
	for _, kv := range env {
		name, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, overridden := overrides[name]; overridden {
				continue
			}
		}
		out = append(out, kv)
	}
	for name, value := range overrides {
		out = append(out, name+"="+value)
	}
	return out
}
