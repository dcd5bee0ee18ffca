package services

import (
	"context"
	"testing"

	"github.com/spooldock/spooldock/internal/apierr"
)

func TestSettingDefaultsAndRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	got, err := env.settings.Get(ctx, "currency")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsSet || got.Value != `"EUR"` {
		t.Fatalf("unset currency = %+v, want default \"EUR\"", got)
	}

	if _, err := env.settings.Set(ctx, "currency", `"USD"`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = env.settings.Get(ctx, "currency")
	if err != nil {
		t.Fatalf("get after set: %v", err)
	}
	if !got.IsSet || got.Value != `"USD"` {
		t.Fatalf("currency = %+v, want stored \"USD\"", got)
	}

	if _, err := env.settings.Unset(ctx, "currency"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	got, err = env.settings.Get(ctx, "currency")
	if err != nil {
		t.Fatalf("get after unset: %v", err)
	}
	if got.IsSet || got.Value != `"EUR"` {
		t.Fatalf("currency after unset = %+v, want default again", got)
	}
}

func TestSettingRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.settings.Get(ctx, "no_such_key")
	if apierr.StatusOf(err) != 404 {
		t.Fatalf("unknown key: status = %d, want 404", apierr.StatusOf(err))
	}

	_, err = env.settings.Set(ctx, "round_prices", `"yes"`)
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("wrong JSON shape: status = %d, want 400", apierr.StatusOf(err))
	}

	_, err = env.settings.Set(ctx, "currency", `not json`)
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("invalid JSON: status = %d, want 400", apierr.StatusOf(err))
	}

	// Field schemas are managed through the field endpoints only.
	_, err = env.settings.Set(ctx, "extra_fields_spool", `[]`)
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("reserved key: status = %d, want 400", apierr.StatusOf(err))
	}
}

func TestSettingGetAllCoversRegistry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.settings.Set(ctx, "base_url", `"https://spools.example.org"`); err != nil {
		t.Fatalf("set: %v", err)
	}

	all, err := env.settings.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != len(settingRegistry) {
		t.Fatalf("got %d settings, want %d", len(all), len(settingRegistry))
	}
	byKey := make(map[string]*SettingValue, len(all))
	for _, sv := range all {
		byKey[sv.Key] = sv
	}
	if sv := byKey["base_url"]; sv == nil || !sv.IsSet || sv.Value != `"https://spools.example.org"` {
		t.Fatalf("base_url = %+v", byKey["base_url"])
	}
	if sv := byKey["locale"]; sv == nil || sv.IsSet {
		t.Fatalf("locale should report its default, got %+v", byKey["locale"])
	}
}
