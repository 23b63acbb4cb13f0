package shell

import (
	"path/filepath"
	"testing"
)

func TestParseChangeDir(t *testing.T) {
	tests := []struct {
		command string
		wantArg string
		wantOK  bool
	}{
		{"cd", "", true},
		{"  cd  ", "", true},
		{"cd /tmp", "/tmp", true},
		{"cd ..", "..", true},
		{"cd\tsub", "sub", true},
		{"cd   spaced  ", "spaced", true},
		{`cd "My Documents"`, "My Documents", true},
		{"cd 'My Documents'", "My Documents", true},
		{`cd My\ Documents`, "My Documents", true},
		{"cd ~", "~", true},
		{"cd ~/src", "~/src", true},
		{"cd '~'", "./~", true},
		{`cd "~/src"`, "./~/src", true},
		{"cd ~duck", "", false},
		{"cd ~duck/src", "", false},
		{"cd ~+", "", false},
		{"cd ~-", "", false},
		{"cd -", "", false},
		{"cd -P /tmp", "", false},
		{"cd $HOME", "", false},
		{"cd /tmp && ls", "", false},
		{"cd /tmp; ls", "", false},
		{"cd `pwd`", "", false},
		{`cd "unterminated`, "", false},
		{"cdx", "", false},
		{"ls", "", false},
		{"pushd /tmp", "", false},
		{"echo cd /tmp", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			arg, ok := ParseChangeDir(tt.command)
			if ok != tt.wantOK || arg != tt.wantArg {
				t.Errorf("ParseChangeDir(%q) = (%q, %v), want (%q, %v)", tt.command, arg, ok, tt.wantArg, tt.wantOK)
			}
		})
	}
}

func TestResolveChangeDir(t *testing.T) {
	home := filepath.FromSlash("/home/duck")
	base := filepath.FromSlash("/a/b")

	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"absolute replaces", "/tmp", "/tmp"},
		{"parent", "..", "/a"},
		{"relative joins", "c/d", "/a/b/c/d"},
		{"dot", ".", "/a/b"},
		{"cleaned", "./c/../e/", "/a/b/e"},
		{"empty is home", "", "/home/duck"},
		{"tilde is home", "~", "/home/duck"},
		{"tilde prefix", "~/src", "/home/duck/src"},
		{"quoted tilde is literal", "./~", "/a/b/~"},
		{"root parent stays root", "../../..", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveChangeDir(base, filepath.FromSlash(tt.arg), home)
			if want := filepath.FromSlash(tt.want); got != want {
				t.Errorf("ResolveChangeDir(%q, %q) = %q, want %q", base, tt.arg, got, want)
			}
		})
	}
}
