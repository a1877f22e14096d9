package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	if err := SafeWriteFile(path, []byte("one")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := SafeWriteFile(path, []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "two" {
		t.Fatalf("read = %q, %v", b, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestEnsureDirsSkipsBlank(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a", "b")
	if err := EnsureDirs(a, "  ", filepath.Join(root, "c")); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, d := range []string{a, filepath.Join(root, "c")} {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Fatalf("%s not created: %v", d, err)
		}
	}
}

func TestSafeFileComponent(t *testing.T) {
	cases := map[string]string{
		"city":          "city",
		"a/b":           "a_b",
		" Région (FR) ": "R_gion_FR",
		"../etc/passwd": "etc_passwd",
		"":              "unnamed",
		"...":           "unnamed",
		"x.y-z_1":       "x.y-z_1",
	}
	for in, want := range cases {
		if got := SafeFileComponent(in); got != want {
			t.Fatalf("SafeFileComponent(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SafeFileComponent(strings.Repeat("a", 100)); len(got) != 64 {
		t.Fatalf("long name not truncated: %d", len(got))
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := ExpandHome("~/graphs")
	if err != nil || got != filepath.Join(home, "graphs") {
		t.Fatalf("ExpandHome = %q, %v", got, err)
	}
	got, err = ExpandHome("static/./graphs")
	if err != nil || got != filepath.Join("static", "graphs") {
		t.Fatalf("relative = %q, %v", got, err)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	if err != nil || string(b) != "{\n  \"a\": 1\n}" {
		t.Fatalf("PrettyJSON = %q, %v", b, err)
	}
}
