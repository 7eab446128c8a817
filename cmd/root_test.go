package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/derickschaefer/bodacc/internal/config"
)

// runCLI executes the root command in a scratch directory with its own
// database and returns what was written to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		globalFlags.Format = ""
		globalFlags.Quiet = false
		globalFlags.Verbose = false
		categoriesSub = false
		storeClearAll = false
		storeClearBucket = ""
		rootCmd.SetIn(nil)
	})
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func scratchEnv(t *testing.T, baseURL string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvDBPath, filepath.Join(dir, "bodacc.db"))
	t.Setenv(config.EnvDataset, "")
	t.Setenv(config.EnvTimeout, "")
	t.Setenv(config.EnvBaseURL, baseURL)
}

func TestSubcommandRouting(t *testing.T) {
	paths := [][]string{
		{"search"},
		{"stats"},
		{"weather"},
		{"categories"},
		{"category"},
		{"live"},
		{"store", "list"},
		{"store", "show"},
		{"store", "stats"},
		{"store", "clear"},
		{"store", "compact"},
		{"snapshot", "save"},
		{"snapshot", "list"},
		{"snapshot", "show"},
		{"snapshot", "run"},
		{"snapshot", "delete"},
		{"config", "init"},
		{"config", "get"},
		{"config", "set"},
		{"analyze"},
		{"version"},
		{"completion"},
	}
	for _, p := range paths {
		c, rest, err := rootCmd.Find(p)
		if err != nil {
			t.Errorf("%v: %v", p, err)
			continue
		}
		if len(rest) != 0 || c == rootCmd {
			t.Errorf("%v: resolved to %q with leftover args %v", p, c.CommandPath(), rest)
		}
	}
}

func TestCategoriesCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/facets/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"buckets": [{"value": "Radiation"}, {"value": "Création"}]}`))
	}))
	t.Cleanup(srv.Close)
	scratchEnv(t, srv.URL+"/api/")

	out, err := runCLI(t, "categories", "--format", "json")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	var decoded struct {
		Kind string `json:"kind"`
		Data struct {
			Values   []string `json:"values"`
			Fallback bool     `json:"fallback"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if decoded.Kind != "lookup" || decoded.Data.Fallback {
		t.Errorf("unexpected envelope: %+v", decoded)
	}
	if strings.Join(decoded.Data.Values, ",") != "Création,Radiation" {
		t.Errorf("values not sorted: %v", decoded.Data.Values)
	}
}

func TestConfigSetThenGet(t *testing.T) {
	scratchEnv(t, "")

	if _, err := runCLI(t, "config", "set", "timeout", "30s"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, err := runCLI(t, "config", "get", "timeout", "--format", "jsonl")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(out) != `{"key":"timeout","value":"30s"}` {
		t.Errorf("config get timeout = %q", out)
	}

	if _, err := runCLI(t, "config", "set", "nope", "1"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestStoreStatsAndClear(t *testing.T) {
	scratchEnv(t, "")

	out, err := runCLI(t, "store", "stats", "--format", "jsonl")
	if err != nil {
		t.Fatalf("store stats: %v", err)
	}
	for _, bucket := range []string{"statistics", "weather", "snapshots"} {
		if !strings.Contains(out, `"bucket":"`+bucket+`"`) {
			t.Errorf("store stats missing bucket %s:\n%s", bucket, out)
		}
	}

	if _, err := runCLI(t, "store", "clear"); err == nil {
		t.Error("expected error without --all or --bucket")
	}
	if _, err := runCLI(t, "store", "clear", "--bucket", "bogus"); err == nil {
		t.Error("expected error for unknown bucket")
	}
	out, err = runCLI(t, "store", "clear", "--bucket", "weather")
	if err != nil {
		t.Fatalf("store clear: %v", err)
	}
	if !strings.Contains(out, `Cleared bucket "weather"`) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	scratchEnv(t, "")

	if _, err := runCLI(t, "snapshot", "save", "--name", "paris", "--cmd", "search 'jean dupont' --department 75"); err != nil {
		t.Fatalf("snapshot save: %v", err)
	}
	if _, err := runCLI(t, "snapshot", "save", "--name", "paris", "--cmd", "weather"); err == nil {
		t.Error("expected duplicate name to be rejected")
	}

	out, err := runCLI(t, "snapshot", "show", "paris", "--format", "jsonl")
	if err != nil {
		t.Fatalf("snapshot show: %v", err)
	}
	if !strings.Contains(out, `search 'jean dupont' --department 75`) {
		t.Errorf("snapshot show output missing command line:\n%s", out)
	}

	if _, err := runCLI(t, "snapshot", "delete", "paris"); err != nil {
		t.Fatalf("snapshot delete: %v", err)
	}
	if _, err := runCLI(t, "snapshot", "show", "paris"); err == nil {
		t.Error("expected deleted snapshot to be gone")
	}
}

func TestAnalyzeFromPipedPeriods(t *testing.T) {
	scratchEnv(t, "")

	rootCmd.SetIn(strings.NewReader(strings.Join([]string{
		`{"key":"2024-01","period":"January 2024","start":"2024-01-01","count":10}`,
		`{"key":"2024-02","period":"February 2024","start":"2024-02-01","count":20}`,
		`{"key":"2024-03","period":"March 2024","start":"2024-03-01","count":30}`,
	}, "\n")))
	out, err := runCLI(t, "analyze", "--format", "jsonl")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{
		`{"metric":"total","value":"60"}`,
		`{"metric":"busiest","value":"March 2024"}`,
		`{"metric":"slope","value":"10.00 / period"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("analyze output missing %s:\n%s", want, out)
		}
	}

	rootCmd.SetIn(strings.NewReader(`{"id":"A1"}`))
	if _, err := runCLI(t, "analyze"); err == nil {
		t.Error("expected error for non-period input")
	}
}
