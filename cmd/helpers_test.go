package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/derickschaefer/bodacc/internal/app"
	"github.com/derickschaefer/bodacc/internal/config"
	"github.com/derickschaefer/bodacc/internal/model"
)

func TestOutputWriterDefault(t *testing.T) {
	globalFlags.Out = ""
	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter default: %v", err)
	}
	if w != os.Stdout {
		t.Fatalf("expected stdout writer passthrough")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("default closer should be nil error, got: %v", err)
	}
}

func TestOutputWriterFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.txt")
	globalFlags.Out = p
	t.Cleanup(func() { globalFlags.Out = "" })

	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter file: %v", err)
	}
	if w == os.Stdout {
		t.Fatalf("expected file writer, got stdout")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("closing output writer: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KB",
		1536:    "1.5 KB",
		1 << 20: "1.0 MB",
	}
	for n, want := range cases {
		if got := humanBytes(n); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestEmitJSON(t *testing.T) {
	globalFlags.Out = ""
	cfg := config.Defaults()
	cfg.Format = "json"
	deps := &app.Deps{Config: cfg}

	var out, errOut bytes.Buffer
	res := tableResult("store stats", "", []string{"BUCKET", "ROWS"}, [][]string{{"weather", "2"}})
	if err := emit(&out, &errOut, deps, res); err != nil {
		t.Fatalf("emit: %v", err)
	}
	var decoded struct {
		Kind string      `json:"kind"`
		Data model.Table `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if decoded.Kind != model.KindTable || decoded.Data.Rows[0][0] != "weather" {
		t.Errorf("unexpected envelope: %+v", decoded)
	}
}

func TestEmitQuiet(t *testing.T) {
	cfg := config.Defaults()
	cfg.Quiet = true
	var out, errOut bytes.Buffer
	res := tableResult("x", "", []string{"A"}, [][]string{{"1"}})
	if err := emit(&out, &errOut, &app.Deps{Config: cfg}, res); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 || errOut.Len() != 0 {
		t.Errorf("quiet mode should print nothing, got %q / %q", out.String(), errOut.String())
	}
}

func TestApplyFlagsRejectsUnknownFormat(t *testing.T) {
	globalFlags.Format = "csv"
	t.Cleanup(func() { globalFlags.Format = "" })
	err := applyFlags(config.Defaults())
	if err == nil || !strings.Contains(err.Error(), "csv") {
		t.Errorf("expected format error, got %v", err)
	}
}

func TestApplyFlagsTimeout(t *testing.T) {
	globalFlags.Timeout = "3s"
	t.Cleanup(func() { globalFlags.Timeout = "" })
	cfg := config.Defaults()
	if err := applyFlags(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout.String() != "3s" {
		t.Errorf("Timeout: got %v", cfg.Timeout)
	}

	globalFlags.Timeout = "soon"
	if err := applyFlags(config.Defaults()); err == nil {
		t.Error("expected error for bad --timeout")
	}
}
