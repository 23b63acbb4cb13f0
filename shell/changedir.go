package shell

import (
	"path/filepath"
	"strings"

	"github.com/weeksdev/duckfinder/fs"
)

// Characters that make the target depend on shell evaluation
const shellMeta = ";&|$`()<>\n"

// ParseChangeDir reports whether commandLine is a plain `cd` and returns its
// argument with quoting removed. An empty argument means the home directory.
//
// Only the simple forms are recognised: `cd -`, options, `~user` and other
// tilde prefixes, variable expansion, compound commands and pushd/popd are
// left to the shell alone.
func ParseChangeDir(commandLine string) (string, bool) {
	c := strings.TrimSpace(commandLine)
	if c == "cd" {
		return "", true
	}
	if !strings.HasPrefix(c, "cd ") && !strings.HasPrefix(c, "cd\t") {
		return "", false
	}

	arg := strings.TrimSpace(c[2:])
	if strings.ContainsAny(arg, shellMeta) || strings.HasPrefix(arg, "-") {
		return "", false
	}

	if n := len(arg); n >= 2 && (arg[0] == '"' || arg[0] == '\'') && arg[n-1] == arg[0] {
		inner := arg[1 : n-1]
		if strings.ContainsRune(inner, rune(arg[0])) {
			return "", false
		}
		// Quoting suppresses tilde expansion
		if strings.HasPrefix(inner, "~") {
			inner = "./" + inner
		}
		return inner, true
	}

	if strings.ContainsAny(arg, `"'`) {
		return "", false
	}
	// ~user, ~+ and ~- expand to directories we can't know
	if strings.HasPrefix(arg, "~") && arg != "~" && !strings.HasPrefix(arg, "~/") {
		return "", false
	}
	return strings.ReplaceAll(arg, `\ `, " "), true
}

// ResolveChangeDir turns a cd argument into an absolute, cleaned path
func ResolveChangeDir(dir, arg, home string) string {
	switch {
	case arg == "" || arg == "~":
		return filepath.Clean(home)
	case strings.HasPrefix(arg, "~/"):
		return filepath.Join(home, arg[2:])
	}
	return fs.Resolve(dir, arg)
}
