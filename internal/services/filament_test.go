package services

import (
	"context"
	"testing"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/types"
)

func TestFilamentCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input FilamentCreate
	}{
		{"zero density", FilamentCreate{Density: 0, Diameter: 1.75}},
		{"negative diameter", FilamentCreate{Density: 1.24, Diameter: -1}},
		{"zero weight", FilamentCreate{Density: 1.24, Diameter: 1.75, Weight: fptr(0)}},
		{"zero spool weight", FilamentCreate{Density: 1.24, Diameter: 1.75, SpoolWeight: fptr(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.filaments.Create(ctx, tc.input)
			if apierr.StatusOf(err) != 400 {
				t.Fatalf("status = %d, want 400", apierr.StatusOf(err))
			}
		})
	}

	_, err := env.filaments.Create(ctx, FilamentCreate{
		VendorID: intPtr(99999),
		Density:  1.24,
		Diameter: 1.75,
	})
	if apierr.StatusOf(err) != 404 {
		t.Fatalf("unknown vendor: status = %d, want 404", apierr.StatusOf(err))
	}
}

func TestFilamentUpdateVendorNullClears(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vendor, err := env.vendors.Create(ctx, VendorCreate{Name: "Prusament"})
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	filament, err := env.filaments.Create(ctx, FilamentCreate{
		VendorID: &vendor.ID,
		Density:  1.24,
		Diameter: 1.75,
	})
	if err != nil {
		t.Fatalf("create filament: %v", err)
	}

	updated, err := env.filaments.Update(ctx, filament.ID, FilamentPatch{
		VendorID: types.Null[int](),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.VendorID != nil {
		t.Fatalf("vendor reference should be cleared")
	}

	_, err = env.filaments.Update(ctx, filament.ID, FilamentPatch{
		Density: types.Null[float64](),
	})
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("null density: status = %d, want 400", apierr.StatusOf(err))
	}
}

// A filament referenced by any spool refuses deletion.
func TestFilamentDeleteBlockedBySpools(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	spool, err := env.spools.Create(ctx, SpoolCreate{FilamentID: filament.ID})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	_, err = env.filaments.Delete(ctx, filament.ID)
	if apierr.StatusOf(err) != 403 {
		t.Fatalf("delete with spools: status = %d, want 403", apierr.StatusOf(err))
	}

	if _, err := env.spools.Delete(ctx, spool.ID); err != nil {
		t.Fatalf("delete spool: %v", err)
	}
	if _, err := env.filaments.Delete(ctx, filament.ID); err != nil {
		t.Fatalf("delete after spools gone: %v", err)
	}
}

func intPtr(v int) *int { return &v }
