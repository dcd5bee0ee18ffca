package services

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/repos"
	"github.com/spooldock/spooldock/internal/types"
)

// newTestFilament creates the reference PLA filament used across the spool
// tests: 1.24 g/cm³, 1.75 mm, 1000 g net on a 250 g spool.
func newTestFilament(t *testing.T, env *testEnv) *types.Filament {
	t.Helper()
	filament, err := env.filaments.Create(context.Background(), FilamentCreate{
		Name:        sptr("PLA Galaxy Black"),
		Material:    sptr("PLA"),
		Density:     1.24,
		Diameter:    1.75,
		Weight:      fptr(1000),
		SpoolWeight: fptr(250),
	})
	if err != nil {
		t.Fatalf("create filament: %v", err)
	}
	return filament
}

func TestSpoolCreateFromRemainingWeightAndUseByWeight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	spool, err := env.spools.Create(ctx, SpoolCreate{
		FilamentID:      filament.ID,
		RemainingWeight: fptr(750),
	})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}
	if spool.UsedWeight != 250 {
		t.Fatalf("used_weight = %v, want 250", spool.UsedWeight)
	}
	if spool.RemainingWeight == nil || *spool.RemainingWeight != 750 {
		t.Fatalf("remaining_weight = %v, want 750", spool.RemainingWeight)
	}
	if spool.InitialWeight == nil || *spool.InitialWeight != 1000 {
		t.Fatalf("initial_weight = %v, want inherited 1000", spool.InitialWeight)
	}
	if spool.SpoolWeight == nil || *spool.SpoolWeight != 250 {
		t.Fatalf("spool_weight = %v, want inherited 250", spool.SpoolWeight)
	}
	if spool.RemainingLength == nil || !near(*spool.RemainingLength, 251460, 100) {
		t.Fatalf("remaining_length = %v, want ~251460 mm", spool.RemainingLength)
	}
	if spool.FirstUsed != nil || spool.LastUsed != nil {
		t.Fatalf("fresh spool should have no usage timestamps")
	}

	spool, err = env.spools.UseByWeight(ctx, spool.ID, 5)
	if err != nil {
		t.Fatalf("use by weight: %v", err)
	}
	if spool.UsedWeight != 255 {
		t.Fatalf("used_weight = %v, want 255", spool.UsedWeight)
	}
	if spool.RemainingWeight == nil || *spool.RemainingWeight != 745 {
		t.Fatalf("remaining_weight = %v, want 745", spool.RemainingWeight)
	}
	if spool.FirstUsed == nil || spool.LastUsed == nil {
		t.Fatalf("usage timestamps should be stamped")
	}
	if time.Since(*spool.FirstUsed) > time.Minute || time.Since(*spool.LastUsed) > time.Minute {
		t.Fatalf("usage timestamps should be recent: first=%v last=%v", spool.FirstUsed, spool.LastUsed)
	}
}

func TestSpoolCreateWeightArgumentRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	_, err := env.spools.Create(ctx, SpoolCreate{
		FilamentID:      filament.ID,
		RemainingWeight: fptr(500),
		UsedWeight:      fptr(100),
	})
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("remaining+used together: status = %d, want 400", apierr.StatusOf(err))
	}

	// A filament without a net weight gives the spool no initial_weight to
	// derive used_weight from.
	bare, err := env.filaments.Create(ctx, FilamentCreate{
		Density:  1.24,
		Diameter: 1.75,
	})
	if err != nil {
		t.Fatalf("create bare filament: %v", err)
	}
	_, err = env.spools.Create(ctx, SpoolCreate{
		FilamentID:      bare.ID,
		RemainingWeight: fptr(500),
	})
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("remaining without initial: status = %d, want 400", apierr.StatusOf(err))
	}

	_, err = env.spools.Create(ctx, SpoolCreate{FilamentID: 99999})
	if apierr.StatusOf(err) != 404 {
		t.Fatalf("unknown filament: status = %d, want 404", apierr.StatusOf(err))
	}
}

func TestSpoolUseByLengthRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	spool, err := env.spools.Create(ctx, SpoolCreate{
		FilamentID: filament.ID,
		UsedWeight: fptr(0),
	})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	spool, err = env.spools.UseByLength(ctx, spool.ID, 1000)
	if err != nil {
		t.Fatalf("use by length: %v", err)
	}
	if !near(spool.UsedWeight, 2.983, 0.01) {
		t.Fatalf("used_weight = %v, want ~2.983 g for 1 m", spool.UsedWeight)
	}

	// The refund of the same length clamps at zero, never negative.
	spool, err = env.spools.UseByLength(ctx, spool.ID, -1000)
	if err != nil {
		t.Fatalf("refund by length: %v", err)
	}
	if !near(spool.UsedWeight, 0, 1e-9) {
		t.Fatalf("used_weight = %v, want 0 after refund", spool.UsedWeight)
	}

	spool, err = env.spools.UseByWeight(ctx, spool.ID, -10)
	if err != nil {
		t.Fatalf("over-refund: %v", err)
	}
	if spool.UsedWeight != 0 {
		t.Fatalf("used_weight = %v, want clamp at 0", spool.UsedWeight)
	}
}

func TestSpoolConcurrentUseComposesAdditively(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	spool, err := env.spools.Create(ctx, SpoolCreate{
		FilamentID:      filament.ID,
		RemainingWeight: fptr(1000),
	})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			_, err := env.spools.UseByWeight(ctx, spool.ID, 0.5)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent use: %v", err)
	}

	final, err := env.spools.Get(ctx, spool.ID)
	if err != nil {
		t.Fatalf("get spool: %v", err)
	}
	if final.UsedWeight != 50.0 {
		t.Fatalf("used_weight = %v, want exactly 50.0", final.UsedWeight)
	}
}

func TestSpoolMeasureResetsAboveExpectedGross(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	spool, err := env.spools.Create(ctx, SpoolCreate{
		FilamentID:    filament.ID,
		InitialWeight: fptr(1000),
	})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	// 1500 g on the scale exceeds the expected full gross of 1250 g.
	spool, err = env.spools.Measure(ctx, spool.ID, 1500)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if spool.InitialWeight == nil || *spool.InitialWeight != 1250 {
		t.Fatalf("initial_weight = %v, want reset to 1250", spool.InitialWeight)
	}
	if spool.UsedWeight != 0 {
		t.Fatalf("used_weight = %v, want reset to 0", spool.UsedWeight)
	}
}

func TestSpoolMeasureClampsToTare(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	spool, err := env.spools.Create(ctx, SpoolCreate{
		FilamentID:    filament.ID,
		InitialWeight: fptr(1000),
	})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	// 200 g is below the 250 g tare; consumption stops at empty.
	spool, err = env.spools.Measure(ctx, spool.ID, 200)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if spool.UsedWeight != 1000 {
		t.Fatalf("used_weight = %v, want 1000", spool.UsedWeight)
	}
	if spool.RemainingWeight == nil || *spool.RemainingWeight != 0 {
		t.Fatalf("remaining_weight = %v, want 0", spool.RemainingWeight)
	}
}

func TestSpoolMeasureIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	spool, err := env.spools.Create(ctx, SpoolCreate{
		FilamentID:    filament.ID,
		InitialWeight: fptr(1000),
	})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	first, err := env.spools.Measure(ctx, spool.ID, 1100)
	if err != nil {
		t.Fatalf("first measure: %v", err)
	}
	if first.UsedWeight != 150 {
		t.Fatalf("used_weight = %v, want 150 after measuring 1100 of 1250", first.UsedWeight)
	}

	second, err := env.spools.Measure(ctx, spool.ID, 1100)
	if err != nil {
		t.Fatalf("second measure: %v", err)
	}
	if second.UsedWeight != first.UsedWeight {
		t.Fatalf("repeated measure changed used_weight: %v -> %v", first.UsedWeight, second.UsedWeight)
	}
}

func TestSpoolMeasureWithoutInitialWeightFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bare, err := env.filaments.Create(ctx, FilamentCreate{
		Density:  1.24,
		Diameter: 1.75,
	})
	if err != nil {
		t.Fatalf("create filament: %v", err)
	}
	spool, err := env.spools.Create(ctx, SpoolCreate{FilamentID: bare.ID})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	_, err = env.spools.Measure(ctx, spool.ID, 500)
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("measure without initial: status = %d, want 400", apierr.StatusOf(err))
	}
}

func TestSpoolUpdatePatchSemantics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	spool, err := env.spools.Create(ctx, SpoolCreate{
		FilamentID: filament.ID,
		Location:   sptr("shelf A"),
	})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	_, err = env.spools.Update(ctx, spool.ID, SpoolPatch{
		FilamentID: types.Null[int](),
	})
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("null filament_id: status = %d, want 400", apierr.StatusOf(err))
	}

	_, err = env.spools.Update(ctx, spool.ID, SpoolPatch{
		RemainingWeight: types.Some(600.0),
		UsedWeight:      types.Some(100.0),
	})
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("remaining+used in one patch: status = %d, want 400", apierr.StatusOf(err))
	}

	updated, err := env.spools.Update(ctx, spool.ID, SpoolPatch{
		RemainingWeight: types.Some(600.0),
		Location:        types.Null[string](),
		Comment:         types.Some("opened"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UsedWeight != 400 {
		t.Fatalf("used_weight = %v, want 400 from remaining 600 of 1000", updated.UsedWeight)
	}
	if updated.Location != nil {
		t.Fatalf("location = %v, want cleared", *updated.Location)
	}
	if updated.Comment == nil || *updated.Comment != "opened" {
		t.Fatalf("comment = %v, want \"opened\"", updated.Comment)
	}
}

func TestSpoolArchivedExcludedFromDefaultListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	active, err := env.spools.Create(ctx, SpoolCreate{FilamentID: filament.ID})
	if err != nil {
		t.Fatalf("create active spool: %v", err)
	}
	_, err = env.spools.Create(ctx, SpoolCreate{
		FilamentID: filament.ID,
		Archived:   bptr(true),
	})
	if err != nil {
		t.Fatalf("create archived spool: %v", err)
	}

	spools, total, err := env.spools.Find(ctx, repos.SpoolFilter{}, "", repos.Pagination{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if total != 1 || len(spools) != 1 || spools[0].ID != active.ID {
		t.Fatalf("default listing = %d spools (total %d), want only the active one", len(spools), total)
	}

	_, total, err = env.spools.Find(ctx, repos.SpoolFilter{AllowArchived: true}, "", repos.Pagination{})
	if err != nil {
		t.Fatalf("find with archived: %v", err)
	}
	if total != 2 {
		t.Fatalf("listing with archived: total = %d, want 2", total)
	}
}

func TestSpoolDeletePublishesFinalState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	filament := newTestFilament(t, env)

	spool, err := env.spools.Create(ctx, SpoolCreate{
		FilamentID: filament.ID,
		UsedWeight: fptr(42),
	})
	if err != nil {
		t.Fatalf("create spool: %v", err)
	}

	deleted, err := env.spools.Delete(ctx, spool.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.UsedWeight != 42 {
		t.Fatalf("deleted payload used_weight = %v, want 42", deleted.UsedWeight)
	}

	_, err = env.spools.Get(ctx, spool.ID)
	if apierr.StatusOf(err) != 404 {
		t.Fatalf("get after delete: status = %d, want 404", apierr.StatusOf(err))
	}
}
