package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Exercises Handler end to end (walk -> parse -> lower -> codegen -> file write) against a
// self-contained one-class fixture instead of the teacher's course fixtures and 'git diff'
// comparison against a built-in reference compiler, neither of which this tree carries.
func TestJackCompiler(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Main.jack")

	source := "class Main {\n    function void main() {\n        return;\n    }\n}\n"
	if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
		t.Fatalf("unable to write fixture: %s", err)
	}

	status := Handler([]string{input}, map[string]string{})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	got, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	if err != nil {
		t.Fatalf("unable to read generated output: %s", err)
	}

	want := strings.Join([]string{"function Main.main 0", "push constant 0", "return", ""}, "\n")
	if string(got) != want {
		t.Fatalf("generated VM code does not match expected lowering:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestJackCompilerRejectsEmptyArgs(t *testing.T) {
	status := Handler([]string{}, map[string]string{})
	if status == 0 {
		t.Fatalf("expected a non-zero exit status when no input is provided")
	}
}
