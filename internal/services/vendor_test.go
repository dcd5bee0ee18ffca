package services

import (
	"context"
	"testing"
	"time"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/events"
	"github.com/spooldock/spooldock/internal/repos"
	"github.com/spooldock/spooldock/internal/types"
)

func TestVendorCreatePublishesAddedEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client := env.hub.NewClient()
	env.hub.Subscribe(client, events.BroadcastKey(types.ResourceVendor))
	defer env.hub.CloseClient(client)

	vendor, err := env.vendors.Create(ctx, VendorCreate{Name: "Polymaker"})
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}

	select {
	case evt := <-client.Outbound:
		if evt.Type != events.EventAdded || evt.Resource != types.ResourceVendor {
			t.Fatalf("got event type=%s resource=%s", evt.Type, evt.Resource)
		}
	case <-time.After(time.Second):
		t.Fatalf("no added event delivered")
	}

	if vendor.Registered.Location() != time.UTC || vendor.Registered.Nanosecond() != 0 {
		t.Fatalf("registered should be UTC second precision, got %v", vendor.Registered)
	}
}

func TestVendorUpdatePatchSemantics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vendor, err := env.vendors.Create(ctx, VendorCreate{
		Name:             "Polymaker",
		Comment:          sptr("fast shipping"),
		EmptySpoolWeight: fptr(140),
	})
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}

	_, err = env.vendors.Update(ctx, vendor.ID, VendorPatch{Name: types.Null[string]()})
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("null name: status = %d, want 400", apierr.StatusOf(err))
	}

	updated, err := env.vendors.Update(ctx, vendor.ID, VendorPatch{
		Name:    types.Some("Polymaker EU"),
		Comment: types.Null[string](),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Polymaker EU" {
		t.Fatalf("name = %q", updated.Name)
	}
	if updated.Comment != nil {
		t.Fatalf("comment = %v, want cleared", *updated.Comment)
	}
	if updated.EmptySpoolWeight == nil || *updated.EmptySpoolWeight != 140 {
		t.Fatalf("untouched empty_spool_weight changed: %v", updated.EmptySpoolWeight)
	}
}

// Deleting a vendor clears the reference on its filaments instead of
// cascading.
func TestVendorDeleteClearsFilamentReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vendor, err := env.vendors.Create(ctx, VendorCreate{Name: "Polymaker"})
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

	if _, err := env.vendors.Delete(ctx, vendor.ID); err != nil {
		t.Fatalf("delete vendor: %v", err)
	}

	reloaded, err := env.filaments.Get(ctx, filament.ID)
	if err != nil {
		t.Fatalf("get filament: %v", err)
	}
	if reloaded.VendorID != nil || reloaded.Vendor != nil {
		t.Fatalf("filament should have its vendor reference cleared")
	}

	_, err = env.vendors.Get(ctx, vendor.ID)
	if apierr.StatusOf(err) != 404 {
		t.Fatalf("get after delete: status = %d, want 404", apierr.StatusOf(err))
	}
}

func TestVendorFindFiltersAndSorts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"Prusament", "Polymaker", "eSun"} {
		if _, err := env.vendors.Create(ctx, VendorCreate{Name: name}); err != nil {
			t.Fatalf("create vendor %s: %v", name, err)
		}
	}

	vendors, total, err := env.vendors.Find(ctx, repos.VendorFilter{Name: sptr("P")}, "name:asc", repos.Pagination{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if total != 2 || len(vendors) != 2 {
		t.Fatalf("got %d vendors (total %d), want 2", len(vendors), total)
	}
	if vendors[0].Name != "Polymaker" || vendors[1].Name != "Prusament" {
		t.Fatalf("sort order wrong: %s, %s", vendors[0].Name, vendors[1].Name)
	}

	_, _, err = env.vendors.Find(ctx, repos.VendorFilter{}, "nonsense:asc", repos.Pagination{})
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("unknown sort field: status = %d, want 400", apierr.StatusOf(err))
	}

	paged, total, err := env.vendors.Find(ctx, repos.VendorFilter{}, "name:desc", repos.Pagination{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("paged find: %v", err)
	}
	if total != 3 || len(paged) != 1 {
		t.Fatalf("paged: got %d of total %d, want 1 of 3", len(paged), total)
	}
}
