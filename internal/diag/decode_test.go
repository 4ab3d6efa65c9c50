package diag

import (
	"strings"
	"testing"
)

const cargoOutput = `{"reason":"compiler-artifact","package_id":"dep 0.1.0","target":{"name":"dep"}}
{"reason":"compiler-message","package_id":"scenario 0.1.0","message":{"message":"cannot assign twice to immutable variable ` + "`b`" + `","code":{"code":"E0384","explanation":"..."},"level":"error","spans":[{"file_name":"src/main.rs","line_start":2,"column_start":9,"is_primary":false},{"file_name":"src/main.rs","line_start":4,"column_start":5,"is_primary":true}],"children":[{"message":"consider making this binding mutable","level":"help"}],"rendered":"error[E0384]..."}}
{"reason":"compiler-message","package_id":"scenario 0.1.0","message":{"message":"unused variable: ` + "`a`" + `","code":{"code":"unused_variables"},"level":"warning","spans":[{"file_name":"src/main.rs","line_start":3,"column_start":9,"is_primary":true}],"children":[]}}
{"reason":"compiler-message","package_id":"scenario 0.1.0","message":{"message":"aborting due to 1 previous error","code":null,"level":"error","spans":[],"children":[]}}
{"reason":"build-finished","success":false}
error: could not compile ` + "`scenario`" + ` (bin "scenario") due to 1 previous error
`

func TestDecodeCargoJSON(t *testing.T) {
	for _, f := range []Format{FormatCargoJSON, FormatAuto} {
		bag := Decode(f, []byte(cargoOutput), 0)
		if bag.Len() != 2 {
			t.Fatalf("%s: decoded %d diagnostics, want 2:\n%s", f, bag.Len(), FormatShort(bag.Items(), false))
		}
		first := bag.FirstError()
		if first == nil || first.Code != "E0384" {
			t.Fatalf("%s: first error = %+v", f, first)
		}
		if first.File != "src/main.rs" || first.Line != 4 || first.Col != 5 {
			t.Fatalf("%s: primary location = %s", f, first.Location())
		}
		if len(first.Notes) != 1 || !strings.HasPrefix(first.Notes[0], "help: ") {
			t.Fatalf("%s: notes = %v", f, first.Notes)
		}
		if len(bag.Errors()) != 1 {
			t.Fatalf("%s: errors = %d, want 1", f, len(bag.Errors()))
		}
	}
}

const rustcOutput = "warning: unused variable: `a`\n" +
	" --> src/main.rs:3:9\n" +
	"  |\n" +
	"3 |     let a = 0;\n" +
	"  |         ^ help: if this is intentional, prefix it with an underscore: `_a`\n" +
	"\n" +
	"error[E0384]: cannot assign twice to immutable variable `b`\n" +
	" --> src/main.rs:4:5\n" +
	"  |\n" +
	"2 |     let b = 0;\n" +
	"  |         - first assignment to `b`\n" +
	"  = note: `#[warn(unused_variables)]` on by default\n" +
	"\n" +
	"error: aborting due to 1 previous error; 1 warning emitted\n" +
	"\n" +
	"For more information about this error, try `rustc --explain E0384`.\n"

func TestDecodeRustcText(t *testing.T) {
	bag := Decode(FormatRustc, []byte(rustcOutput), 0)
	if bag.Len() != 2 {
		t.Fatalf("decoded %d diagnostics, want 2:\n%s", bag.Len(), FormatShort(bag.Items(), true))
	}
	warn := bag.Items()[0]
	if warn.Severity != SevWarning || warn.Line != 3 {
		t.Fatalf("warning = %+v", warn)
	}
	err := bag.Items()[1]
	if err.Code != "E0384" || err.Location() != "src/main.rs:4:5" {
		t.Fatalf("error = %s", err.String())
	}
	if len(err.Notes) != 1 {
		t.Fatalf("notes = %v", err.Notes)
	}
}

func TestDecodeGo(t *testing.T) {
	out := "# example.com/p\n./main.go:4:2: declared and not used: a\n./main.go:7:9: undefined: x\n\thave (int)\n"
	bag := Decode(FormatGo, []byte(out), 0)
	if bag.Len() != 2 {
		t.Fatalf("decoded %d diagnostics, want 2", bag.Len())
	}
	d := bag.Items()[0]
	if d.File != "main.go" || d.Line != 4 || d.Col != 2 || d.Message != "declared and not used: a" {
		t.Fatalf("first = %+v", d)
	}
	if got := bag.Items()[1].Notes; len(got) != 1 || got[0] != "have (int)" {
		t.Fatalf("continuation notes = %v", got)
	}
}

func TestDecodeRespectsCap(t *testing.T) {
	var b strings.Builder
	for range 10 {
		b.WriteString("x.go:1:1: boom\n")
	}
	if got := Decode(FormatGo, []byte(b.String()), 3).Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
}

func TestDecodeIgnoresNoise(t *testing.T) {
	out := "   Compiling scenario v0.1.0\n    Finished dev [unoptimized] target(s)\n{not json\n"
	if bag := Decode(FormatAuto, []byte(out), 0); bag.Len() != 0 {
		t.Fatalf("decoded noise as diagnostics: %s", FormatShort(bag.Items(), false))
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "JSON": FormatCargoJSON, "rustc": FormatRustc, "go": FormatGo} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
