package stdlib_test

import (
	"os"
	"path/filepath"
	"testing"

	"dmc/stdlib"
)

func TestLocateFindsDMStandardNextToExecutable(t *testing.T) {
	tmp := t.TempDir()
	exe := filepath.Join(tmp, "dmc")
	if err := os.Mkdir(filepath.Join(tmp, stdlib.DirName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	dir, ok := stdlib.Locate(exe)
	if !ok {
		t.Fatalf("expected DMStandard to be found next to %s", exe)
	}
	if filepath.Base(dir) != stdlib.DirName {
		t.Errorf("expected dir basename %s, got %s", stdlib.DirName, dir)
	}
}

func TestLocateReportsMissingWithoutError(t *testing.T) {
	tmp := t.TempDir()
	if _, ok := stdlib.Locate(filepath.Join(tmp, "dmc")); ok {
		t.Errorf("expected Locate to report not-found for an empty directory")
	}
}

func TestScanDefinesParsesDecimalHexAndShiftForms(t *testing.T) {
	tmp := t.TempDir()
	defines := "#define FOO 10\n#define BAR 0x1F\n#define BAZ (1<<4)\n// comment, not a define\n"
	if err := os.WriteFile(filepath.Join(tmp, stdlib.DefinesFile), []byte(defines), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	consts, err := stdlib.ScanDefines(tmp)
	if err != nil {
		t.Fatalf("ScanDefines: %v", err)
	}
	cases := map[string]int64{"FOO": 10, "BAR": 31, "BAZ": 16}
	for name, want := range cases {
		if got := consts[name]; got != want {
			t.Errorf("%s: got %d, want %d", name, got, want)
		}
	}
}

func TestScanDefinesAlwaysIncludesDirectionAliases(t *testing.T) {
	tmp := t.TempDir()
	consts, err := stdlib.ScanDefines(tmp)
	if err == nil {
		t.Fatalf("expected an error reading a missing Defines.dm")
	}
	if consts["NORTH"] != 1 || consts["SOUTHWEST"] != (2|8) {
		t.Errorf("expected direction aliases to be seeded even when Defines.dm is missing, got %v", consts)
	}
}
