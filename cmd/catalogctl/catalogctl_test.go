package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckSample(t *testing.T) {
	out, err := run(t, "check", "--sample")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "3 lookup types, 3 product types") {
		t.Fatalf("check summary: got=%q", out)
	}
}

func TestCompileSampleJSON(t *testing.T) {
	out, err := run(t, "compile", "--sample", "--json", "-p", "phone")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var snaps []map[string]any
	if err := json.Unmarshal([]byte(out), &snaps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snaps) != 1 || snaps[0]["product_type_key"] != "phone" {
		t.Fatalf("snapshots: want phone only got=%v", snaps)
	}
	if _, err := run(t, "compile", "--sample", "-p", "nope"); err == nil {
		t.Fatalf("unknown product type: want error")
	}
}

func TestValidateSample(t *testing.T) {
	out, err := run(t, "validate", "--sample")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "acme phones: 12 combinations") {
		t.Fatalf("validate output: got=%q", out)
	}
}

func TestValidateReportsBadVariant(t *testing.T) {
	doc := `
product_types:
  - key: mug
    name: Mug
    publish: true
    attributes:
      - key: size
        kind: enum
        variant: true
        position: 1
        options:
          - {code: small, label: Small}
          - {code: large, label: Large}
listings:
  - name: mugs
    product_type: mug
    inputs:
      size: {axis: [small]}
    variants:
      - sku: MUG-L
        values: {size: large}
`
	path := filepath.Join(t.TempDir(), "mug.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := run(t, "validate", "-f", path)
	if err == nil {
		t.Fatalf("validate: want failure got output=%q", out)
	}
	if !strings.Contains(out, "FAIL MUG-L") {
		t.Fatalf("validate output: want FAIL MUG-L got=%q", out)
	}
}

func TestManifestSourceRequired(t *testing.T) {
	if _, err := run(t, "check"); err == nil {
		t.Fatalf("check without manifest: want error")
	}
	if _, err := run(t, "check", "--sample", "-f", "x.yaml"); err == nil {
		t.Fatalf("check with both sources: want error")
	}
}
