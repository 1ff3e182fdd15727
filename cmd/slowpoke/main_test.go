package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestRootCommand_Subcommands(t *testing.T) {
	want := map[string]bool{"serve": false, "tenants": false, "sweep": false, "settings": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestSettingsAndTenants_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
	t.Setenv("LOG_LEVEL", "error")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(append([]string{"--chat-root", dir + "/chats", "--settings-path", dir + "/settings"}, args...))
		err := rootCmd.Execute()
		return strings.TrimSpace(out.String()), err
	}

	if _, err := run("settings", "get", "image_file_id"); err == nil {
		t.Fatalf("expected error for unset key")
	}
	if _, err := run("settings", "set", "image_file_id", "F1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := run("settings", "get", "image_file_id"); err != nil || got != "F1" {
		t.Fatalf("get = %q, %v", got, err)
	}
	if got, err := run("tenants"); err != nil || got != "" {
		t.Fatalf("tenants = %q, %v", got, err)
	}
	if got, err := run("sweep"); err != nil || !strings.Contains(got, `"tenants": 0`) {
		t.Fatalf("sweep = %q, %v", got, err)
	}
}

func TestWebhookURL(t *testing.T) {
	old := cfg
	t.Cleanup(func() { cfg = old })

	cfg.WebhookURL = "https://example.com/hook"
	cfg.WebhookMode = false
	if webhookURL() != "" {
		t.Fatalf("polling mode must not set a webhook")
	}
	cfg.WebhookMode = true
	if webhookURL() != "https://example.com/hook" {
		t.Fatalf("webhook url not used")
	}
}
