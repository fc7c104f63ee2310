package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(os.Stderr, LogInfo).RootCommand()

	for _, name := range []string{"layout", "render", "save", "refresh", "reset", "edit", "serve", "cache", "completion", "version"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := root.Find([]string{name})
			if err != nil || cmd.Name() != name {
				t.Errorf("Find(%q) = %v, %v", name, cmd, err)
			}
		})
	}
}

func TestConfigFlagAndLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[api]\nurl = \"http://backend.test/api\"\n\n[log]\nlevel = \"debug\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"--config", path, "cache", "path"})
	root.SetOut(&buf)
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	cfg, err := c.config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.URL != "http://backend.test/api" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if c.Logger.GetLevel() != LogDebug {
		t.Errorf("level = %v, want debug", c.Logger.GetLevel())
	}
}
