package cues

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCapture(t *testing.T, file string) (int, string, string) {
	t.Helper()
	stdout, err := os.CreateTemp(t.TempDir(), "stdout")
	if err != nil {
		t.Fatal(err)
	}
	stderr, err := os.CreateTemp(t.TempDir(), "stderr")
	if err != nil {
		t.Fatal(err)
	}
	defer stdout.Close()
	defer stderr.Close()

	code := Run(&Params{File: file}, stdout, stderr)

	out, _ := os.ReadFile(stdout.Name())
	errOut, _ := os.ReadFile(stderr.Name())
	return code, string(out), string(errOut)
}

func TestRunListsCues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.smore")
	doc := `#smore 1
#title: Campfire
#artist: The Crackers
[0:00.000] Hello
[0:02.000] @Am
[0:04.000] !verse2
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCapture(t, path)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut)
	}
	for _, want := range []string{"Campfire", "The Crackers", "Hello", "Am", "verse2", "1 lyrics, 1 chords, 1 markers"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunRejectsMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.smore")
	if err := os.WriteFile(path, []byte("[0:01.000] no header\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, errOut := runCapture(t, path)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "malformed") {
		t.Errorf("stderr missing parse error: %s", errOut)
	}
}

func TestRunMissingFile(t *testing.T) {
	code, _, _ := runCapture(t, filepath.Join(t.TempDir(), "nope.smore"))
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
