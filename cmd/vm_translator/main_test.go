package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Exercises the full Handler pipeline (parse -> translate -> asm codegen -> file write) end
// to end, the way the teacher's CPUEmulator.sh-driven fixtures did, but against a fixture
// written by the test itself instead of the course's external '.vm'/'.tst' pairs (not present
// in this tree) and an emulator binary this repo does not ship.
func TestVMTranslator(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "SimpleAdd.vm")
	output := filepath.Join(dir, "SimpleAdd.asm")

	source := "push constant 7\npush constant 8\nadd\n"
	if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
		t.Fatalf("unable to write fixture: %s", err)
	}

	status := Handler([]string{input}, map[string]string{"output": output})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("unable to read generated output: %s", err)
	}

	want := strings.Join([]string{
		"@7", "D=A", "@SP", "A=M", "M=D", "@SP", "M=M+1",
		"@8", "D=A", "@SP", "A=M", "M=D", "@SP", "M=M+1",
		"@SP", "A=M-1", "D=M", "A=A-1", "D=M+D",
		"@SP", "A=M-1", "A=A-1", "M=D", "@SP", "M=M-1",
		"",
	}, "\n")

	if string(got) != want {
		t.Fatalf("generated assembly does not match expected translation:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestVMTranslatorRejectsMissingOutput(t *testing.T) {
	status := Handler([]string{"whatever.vm"}, map[string]string{})
	if status == 0 {
		t.Fatalf("expected a non-zero exit status when '--output' is not provided")
	}
}
