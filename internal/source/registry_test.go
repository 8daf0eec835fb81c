package source

import (
	"errors"
	"testing"
	"time"
)

func testRegistry() *Registry {
	fetch := NewClient(nil, "test-agent", time.Second)
	return NewRegistry(fetch, nil, "test-agent")
}

func TestRegistryRegisterAndList(t *testing.T) {
	registry := testRegistry()
	registry.Register(Definition{Name: "Beta", Label: "Beta Source"})
	registry.Register(Definition{Name: "alpha"})

	entries := registry.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name() != "beta" || entries[1].Name() != "alpha" {
		t.Fatalf("registration order lost: %q, %q", entries[0].Name(), entries[1].Name())
	}

	items := registry.List()
	if items[0].Name != "alpha" || items[1].Name != "beta" {
		t.Fatalf("List must sort by name: %#v", items)
	}
	if items[0].Label != "alpha" {
		t.Fatalf("empty label must default to the name, got %q", items[0].Label)
	}
	if items[1].Label != "Beta Source" {
		t.Fatalf("explicit label lost: %q", items[1].Label)
	}
}

func TestRegistrySetEnabled(t *testing.T) {
	registry := testRegistry()
	registry.Register(Definition{Name: "alpha"})

	entry, ok := registry.Get("ALPHA")
	if !ok {
		t.Fatalf("lookup must be case-insensitive")
	}
	if !entry.Enabled() {
		t.Fatalf("sources start enabled")
	}

	if err := registry.SetEnabled("alpha", false); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if entry.Enabled() {
		t.Fatalf("entry still enabled after disable")
	}
	if err := registry.SetEnabled("alpha", true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if !entry.Enabled() {
		t.Fatalf("entry still disabled after enable")
	}

	if err := registry.SetEnabled("ghost", true); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestRegistryDisabledDefinition(t *testing.T) {
	registry := testRegistry()
	registry.Register(Definition{Name: "locked", Disabled: true})

	entry, ok := registry.Get("locked")
	if !ok {
		t.Fatalf("disabled sources still register")
	}
	if entry.Enabled() {
		t.Fatalf("disabled definition must start disabled")
	}
	if entry.Info().Enabled {
		t.Fatalf("info must reflect the disabled state")
	}
}

func TestRegistryLoginSpawnsSession(t *testing.T) {
	registry := testRegistry()
	registry.Register(Definition{
		Name: "authy",
		Login: &LoginSpec{
			PageURL:   "https://example.com/login",
			SubmitURL: "https://example.com/login",
			UserField: "u",
			PassField: "p",
		},
	})
	entry, _ := registry.Get("authy")
	if entry.Authenticated() {
		t.Fatalf("fresh session must not report authenticated")
	}
	if entry.LoginAttempts() != 0 {
		t.Fatalf("fresh session must have 0 attempts")
	}
	if !entry.Info().Auth {
		t.Fatalf("info must mark the source as authenticated kind")
	}
}
