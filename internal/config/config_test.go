package config_test

import (
	"path/filepath"
	"strings"
	"testing"

	"microbeads/internal/config"
	"microbeads/internal/config/yamlstore"
	"microbeads/internal/issue"
)

func newStore(t *testing.T) *yamlstore.YAMLStore {
	t.Helper()
	s, err := yamlstore.New(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("yamlstore.New: %v", err)
	}
	return s
}

func TestApplyDefaultsFillsMissingKeys(t *testing.T) {
	s := newStore(t)
	config.ApplyDefaults(s)

	for key, want := range config.DefaultValues() {
		got, ok := s.Get(key)
		if !ok || got != want {
			t.Errorf("%s = %q (found=%v), want %q", key, got, ok, want)
		}
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	s := newStore(t)
	if err := s.Set(config.KeyDefaultPriority, "0"); err != nil {
		t.Fatal(err)
	}
	config.ApplyDefaults(s)

	if v, _ := s.Get(config.KeyDefaultPriority); v != "0" {
		t.Errorf("explicit value overwritten: %q", v)
	}
}

func TestApplyDefaultsDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := yamlstore.New(path)
	if err != nil {
		t.Fatal(err)
	}
	config.ApplyDefaults(s)

	// Defaults live in memory only; a reload starts empty again.
	reloaded, err := yamlstore.New(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.All()) != 0 {
		t.Errorf("defaults leaked to disk: %v", reloaded.All())
	}
}

func TestValidate(t *testing.T) {
	s := newStore(t)
	s.SetInMemory(config.KeyDefaultPriority, "2")
	s.SetInMemory(config.KeyCompactDays, "45")
	if err := config.Validate(s); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	s.SetInMemory(config.KeyDefaultPriority, "9")
	err := config.Validate(s)
	if err == nil || !strings.Contains(err.Error(), config.KeyDefaultPriority) {
		t.Errorf("invalid priority not caught: %v", err)
	}

	s.SetInMemory(config.KeyDefaultPriority, "2")
	s.SetInMemory(config.KeyCompactDays, "zero")
	err = config.Validate(s)
	if err == nil || !strings.Contains(err.Error(), config.KeyCompactDays) {
		t.Errorf("non-numeric compact days not caught: %v", err)
	}

	s.SetInMemory(config.KeyCompactDays, "-3")
	if err := config.Validate(s); err == nil {
		t.Error("negative compact days not caught")
	}
}

func TestTypedAccessorFallbacks(t *testing.T) {
	s := newStore(t)

	if got := config.DefaultPriority(s); got != issue.PriorityMedium {
		t.Errorf("DefaultPriority on empty store = %d", got)
	}
	if got := config.DefaultType(s); got != issue.TypeTask {
		t.Errorf("DefaultType on empty store = %q", got)
	}
	if got := config.CompactDays(s); got != 30 {
		t.Errorf("CompactDays on empty store = %d", got)
	}
	if got := config.SyncRemote(s); got != "origin" {
		t.Errorf("SyncRemote on empty store = %q", got)
	}

	s.SetInMemory(config.KeyDefaultPriority, "not a number")
	if got := config.DefaultPriority(s); got != issue.PriorityMedium {
		t.Errorf("unparsable priority should fall back, got %d", got)
	}

	s.SetInMemory(config.KeyDefaultPriority, "0")
	s.SetInMemory(config.KeyDefaultType, "bug")
	s.SetInMemory(config.KeyCompactDays, "7")
	s.SetInMemory(config.KeySyncRemote, "upstream")
	if got := config.DefaultPriority(s); got != issue.PriorityCritical {
		t.Errorf("DefaultPriority = %d", got)
	}
	if got := config.DefaultType(s); got != issue.TypeBug {
		t.Errorf("DefaultType = %q", got)
	}
	if got := config.CompactDays(s); got != 7 {
		t.Errorf("CompactDays = %d", got)
	}
	if got := config.SyncRemote(s); got != "upstream" {
		t.Errorf("SyncRemote = %q", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	s := newStore(t)
	t.Setenv(config.EnvRemote, "forge")
	config.ApplyEnvOverrides(s)

	if v, _ := s.Get(config.KeySyncRemote); v != "forge" {
		t.Errorf("env override not applied: %q", v)
	}
}
