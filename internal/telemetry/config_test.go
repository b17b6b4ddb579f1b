package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/petasbytes/snapbooks/internal/telemetry"
)

func TestObserveEnabled_EnvMatrix(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"unset", "", false},
		{"on", "1", true},
		{"off", "0", false},
		{"other", "true", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AGT_OBSERVE_JSON", tt.env)
			if got := telemetry.ObserveEnabled(); got != tt.want {
				t.Fatalf("ObserveEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDir_Default(t *testing.T) {
	t.Setenv("AGT_ARTIFACTS_DIR", "")
	if got := telemetry.Dir(); got != telemetry.DefaultDir {
		t.Fatalf("Dir() = %q, want %q", got, telemetry.DefaultDir)
	}
}

func TestConfigure_OverridesEnvironment(t *testing.T) {
	t.Setenv("AGT_OBSERVE_JSON", "0")
	t.Setenv("AGT_ARTIFACTS_DIR", t.TempDir())
	dir := filepath.Join(t.TempDir(), "events")

	telemetry.Configure(&telemetry.Options{Enabled: true, Dir: dir})
	t.Cleanup(func() { telemetry.Configure(nil) })

	if !telemetry.ObserveEnabled() {
		t.Fatal("configured Enabled should win over AGT_OBSERVE_JSON=0")
	}
	telemetry.Emit("configured", nil)
	if _, err := os.Stat(filepath.Join(dir, "events.jsonl")); err != nil {
		t.Fatalf("expected events under configured dir: %v", err)
	}

	telemetry.Configure(nil)
	if telemetry.ObserveEnabled() {
		t.Fatal("nil options should revert to the environment")
	}
}
