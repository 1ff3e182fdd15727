package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestSettings(t *testing.T, dir string) *SettingsStore {
	t.Helper()
	s, err := OpenSettings(dir)
	if err != nil {
		t.Fatalf("OpenSettings: %v", err)
	}
	return s
}

func TestSettings_GetSetOverwrite(t *testing.T) {
	ctx := context.Background()
	s := openTestSettings(t, t.TempDir())
	t.Cleanup(func() { _ = s.Close() })

	if _, err := s.Get(ctx, SettingImageFileID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get unset key err = %v; want ErrNotFound", err)
	}
	if err := s.Set(ctx, SettingImageFileID, "file-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, err := s.Get(ctx, SettingImageFileID); err != nil || v != "file-1" {
		t.Fatalf("Get = (%q, %v); want (file-1, nil)", v, err)
	}
	if err := s.Set(ctx, SettingImageFileID, "file-2"); err != nil {
		t.Fatalf("Set (overwrite): %v", err)
	}
	if v, err := s.Get(ctx, SettingImageFileID); err != nil || v != "file-2" {
		t.Fatalf("Get after overwrite = (%q, %v); want (file-2, nil)", v, err)
	}
}

func TestSettings_PersistAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := openTestSettings(t, dir)
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s = openTestSettings(t, dir)
	t.Cleanup(func() { _ = s.Close() })
	if v, err := s.Get(ctx, "k"); err != nil || v != "v" {
		t.Fatalf("Get after reopen = (%q, %v)", v, err)
	}
}

func TestSettings_EmptyKeyRejected(t *testing.T) {
	s := openTestSettings(t, t.TempDir())
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Set(context.Background(), "", "v"); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestOpenSettings_BadPath(t *testing.T) {
	if _, err := OpenSettings("  "); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("OpenSettings(blank) err = %v; want ErrConfiguration", err)
	}
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := OpenSettings(filepath.Join(file, "settings")); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("OpenSettings(under file) err = %v; want ErrConfiguration", err)
	}
}
