package compose

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dawitj/gebeya/internal/services/catalog/storage"
)

func postCards(n int) []PostCard {
	cards := make([]PostCard, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, PostCard{
			Post: storage.Post{
				ID:    int64(i + 1),
				Title: fmt.Sprintf("post %d", i+1),
			},
		})
	}
	return cards
}

func TestMergeNoAdsKeepsPostOrder(t *testing.T) {
	t.Parallel()

	items := Merge(Posts(postCards(4)), nil, nil)
	if len(items) != 4 {
		t.Fatalf("len = %d, want 4", len(items))
	}
	for i, item := range items {
		if item.Kind != KindPost {
			t.Fatalf("item %d kind = %q, want %q", i, item.Kind, KindPost)
		}
		if got, want := item.Post.Post.ID, int64(i+1); got != want {
			t.Fatalf("item %d post id = %d, want %d", i, got, want)
		}
	}
}

func TestMergePinnedAdAtSlotOne(t *testing.T) {
	t.Parallel()

	pinned := []storage.PinnedAd{{ID: 1, Position: 1, Content: "ad"}}
	items := Merge(Posts(postCards(5)), pinned, nil)

	if len(items) != 6 {
		t.Fatalf("len = %d, want 6", len(items))
	}
	if items[0].Kind != KindPinnedAd {
		t.Fatalf("item 0 kind = %q, want %q", items[0].Kind, KindPinnedAd)
	}
	for i := 1; i < 6; i++ {
		if items[i].Kind != KindPost {
			t.Fatalf("item %d kind = %q, want %q", i, items[i].Kind, KindPost)
		}
		if got, want := items[i].Post.Post.ID, int64(i); got != want {
			t.Fatalf("item %d post id = %d, want %d", i, got, want)
		}
	}
}

func TestMergeDuplicatePinnedSlotsShiftRight(t *testing.T) {
	t.Parallel()

	pinned := []storage.PinnedAd{
		{ID: 1, Position: 3},
		{ID: 2, Position: 3},
	}
	items := Merge(Posts(postCards(8)), pinned, nil)

	if len(items) != 10 {
		t.Fatalf("len = %d, want 10", len(items))
	}
	// The second ad targets index 2 of the already-grown array, so it
	// lands in front of the first ad.
	if items[2].Kind != KindPinnedAd || items[2].PinnedAd.ID != 2 {
		t.Fatalf("item 2 = %+v, want pinned ad 2", items[2])
	}
	if items[3].Kind != KindPinnedAd || items[3].PinnedAd.ID != 1 {
		t.Fatalf("item 3 = %+v, want pinned ad 1", items[3])
	}
	if items[4].Kind != KindPost || items[4].Post.Post.ID != 3 {
		t.Fatalf("item 4 = %+v, want post 3", items[4])
	}
}

func TestMergePinnedAdBeyondLengthDiscarded(t *testing.T) {
	t.Parallel()

	pinned := []storage.PinnedAd{{ID: 1, Position: 7}}
	items := Merge(Posts(postCards(5)), pinned, nil)

	if len(items) != 5 {
		t.Fatalf("len = %d, want 5", len(items))
	}
	for i, item := range items {
		if item.Kind != KindPost {
			t.Fatalf("item %d kind = %q, want %q", i, item.Kind, KindPost)
		}
	}
}

func TestMergePeriodicAdTenthSlot(t *testing.T) {
	t.Parallel()

	periodic := []storage.PeriodicAd{{ID: 1, Kind: storage.AdKindPost, Content: "rotating"}}
	items := Merge(Posts(postCards(12)), nil, periodic)

	if len(items) != 13 {
		t.Fatalf("len = %d, want 13", len(items))
	}
	if items[9].Kind != KindPeriodicAd {
		t.Fatalf("item 9 kind = %q, want %q", items[9].Kind, KindPeriodicAd)
	}
	if items[10].Kind != KindPost || items[10].Post.Post.ID != 10 {
		t.Fatalf("item 10 = %+v, want post 10", items[10])
	}
}

func TestMergePeriodicAdSkipsPastPinnedAd(t *testing.T) {
	t.Parallel()

	// Pinned ad at slot 10 occupies index 9, so the first periodic ad
	// shifts one slot right.
	pinned := []storage.PinnedAd{{ID: 1, Position: 10}}
	periodic := []storage.PeriodicAd{{ID: 2, Kind: storage.AdKindPost}}
	items := Merge(Posts(postCards(12)), pinned, periodic)

	if len(items) != 14 {
		t.Fatalf("len = %d, want 14", len(items))
	}
	if items[9].Kind != KindPinnedAd {
		t.Fatalf("item 9 kind = %q, want %q", items[9].Kind, KindPinnedAd)
	}
	if items[10].Kind != KindPeriodicAd {
		t.Fatalf("item 10 kind = %q, want %q", items[10].Kind, KindPeriodicAd)
	}
}

func TestMergePeriodicAdBeyondLengthDiscarded(t *testing.T) {
	t.Parallel()

	periodic := []storage.PeriodicAd{{ID: 1, Kind: storage.AdKindPost}}
	items := Merge(Posts(postCards(6)), nil, periodic)

	if len(items) != 6 {
		t.Fatalf("len = %d, want 6", len(items))
	}
}

func TestMergeEmptyPostStream(t *testing.T) {
	t.Parallel()

	pinned := []storage.PinnedAd{{ID: 1, Position: 1}}
	periodic := []storage.PeriodicAd{{ID: 2, Kind: storage.AdKindPost}}
	items := Merge(nil, pinned, periodic)

	if len(items) != 0 {
		t.Fatalf("len = %d, want 0", len(items))
	}
}

func TestMergeDeterministic(t *testing.T) {
	t.Parallel()

	posts := Posts(postCards(20))
	pinned := []storage.PinnedAd{
		{ID: 1, Position: 2, Content: "a"},
		{ID: 2, Position: 9, Content: "b"},
	}
	periodic := []storage.PeriodicAd{
		{ID: 3, Kind: storage.AdKindPost, Content: "c"},
		{ID: 4, Kind: storage.AdKindPost, Content: "d"},
	}

	first, err := json.Marshal(Merge(posts, pinned, periodic))
	if err != nil {
		t.Fatalf("marshal first pass: %v", err)
	}
	second, err := json.Marshal(Merge(posts, pinned, periodic))
	if err != nil {
		t.Fatalf("marshal second pass: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("merge output differs between identical invocations")
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	posts := Posts(postCards(10))
	pinned := []storage.PinnedAd{{ID: 1, Position: 1}}

	_ = Merge(posts, pinned, nil)

	if posts[0].Kind != KindPost || posts[0].Post.Post.ID != 1 {
		t.Fatalf("input slice mutated: %+v", posts[0])
	}
}
