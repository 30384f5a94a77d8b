package store

import (
	"context"
	"testing"

	"github.com/voyagen/streamvault/internal/models"
)

func TestCachedManifestFreshAfterStoreChannels(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	if err := st.StoreChannels(ctx, "tenant-a", []models.Channel{
		{ID: "a", Name: "A", Group: "Sports"},
	}); err != nil {
		t.Fatal(err)
	}

	sum, err := st.CachedManifest(ctx, "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	if sum.ChannelCount != 1 {
		t.Fatalf("Expected 1 channel in summary, got %d", sum.ChannelCount)
	}

	// Replacing the channel set must be reflected by the very next
	// manifest read; a stale cached summary is a defect.
	if err := st.StoreChannels(ctx, "tenant-a", []models.Channel{
		{ID: "a", Name: "A", Group: "Sports"},
		{ID: "b", Name: "B", Group: "News"},
	}); err != nil {
		t.Fatal(err)
	}

	sum, err = st.CachedManifest(ctx, "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	if sum.ChannelCount != 2 {
		t.Errorf("Expected rebuilt summary with 2 channels, got %d", sum.ChannelCount)
	}
	if len(sum.Categories) != 2 || sum.Categories[0] != "News" || sum.Categories[1] != "Sports" {
		t.Errorf("Expected sorted categories [News Sports], got %v", sum.Categories)
	}
}

func TestCachedManifestServesFromCache(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	if err := st.StoreChannels(ctx, "tenant-a", []models.Channel{
		{ID: "a", Name: "A", Group: "Sports"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CachedManifest(ctx, "tenant-a"); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists(manifestKey("tenant-a")) {
		t.Fatal("Expected summary to be cached after first read")
	}

	// Writing channel keys behind the cache's back: the cached summary
	// keeps serving until invalidated or expired.
	mr.Del(channelKey("tenant-a", "a"))
	sum, err := st.CachedManifest(ctx, "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	if sum.ChannelCount != 1 {
		t.Errorf("Expected cached summary, got a rebuild with %d channels", sum.ChannelCount)
	}

	if err := st.InvalidateManifest(ctx, "tenant-a"); err != nil {
		t.Fatal(err)
	}
	sum, err = st.CachedManifest(ctx, "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	if sum.ChannelCount != 0 {
		t.Errorf("Expected rebuild after invalidation, got %d channels", sum.ChannelCount)
	}
}
