// Package compose merges a ranked post stream with supplementary ad
// streams into one deterministic listing sequence.
package compose

import "github.com/dawitj/gebeya/internal/services/catalog/storage"

// Kind tags each composed slot so the presentation layer can style it
// without re-deriving type.
type Kind string

const (
	KindPost       Kind = "post"
	KindPinnedAd   Kind = "pinnedAd"
	KindPeriodicAd Kind = "periodicAd"
)

// PostCard is one decorated post ready for presentation.
type PostCard struct {
	Post        storage.Post `json:"post"`
	Featured    bool         `json:"featuredPost"`
	DisplayDate string       `json:"displayDate"`
	Thumbnail   string       `json:"thumbnail"`
}

// Item is one slot in the composed sequence. Exactly one of the payload
// fields is set, matching Kind.
type Item struct {
	Kind       Kind                `json:"kind"`
	Post       *PostCard           `json:"post,omitempty"`
	PinnedAd   *storage.PinnedAd   `json:"pinnedAd,omitempty"`
	PeriodicAd *storage.PeriodicAd `json:"periodicAd,omitempty"`
}

// periodicStride places rotating ads on every 10th slot.
const periodicStride = 10

// Posts wraps decorated posts as composable items in stream order.
func Posts(cards []PostCard) []Item {
	items := make([]Item, 0, len(cards))
	for i := range cards {
		items = append(items, Item{Kind: KindPost, Post: &cards[i]})
	}
	return items
}

// Merge interleaves pinned and periodic ads into the post stream.
//
// Both passes interpret target slots against the live array as it grows:
// a pinned ad whose 1-based position exceeds the current length is
// discarded silently; a periodic ad i targets index (i+1)*10-1 and shifts
// one slot right when that index already holds a pinned ad, so two ad
// kinds never collapse into one visual slot. The pass order (pinned first,
// then periodic) and the per-ad fetch order are part of the contract;
// reordering either changes the output.
func Merge(posts []Item, pinned []storage.PinnedAd, periodic []storage.PeriodicAd) []Item {
	items := make([]Item, len(posts))
	copy(items, posts)

	for i := range pinned {
		ad := pinned[i]
		if ad.Position < 1 || ad.Position > len(items) {
			continue
		}
		items = insertAt(items, ad.Position-1, Item{Kind: KindPinnedAd, PinnedAd: &ad})
	}

	for i := range periodic {
		ad := periodic[i]
		target := (i+1)*periodicStride - 1
		if target >= len(items) {
			continue
		}
		if items[target].Kind == KindPinnedAd {
			target++
		}
		items = insertAt(items, target, Item{Kind: KindPeriodicAd, PeriodicAd: &ad})
	}

	return items
}

// insertAt inserts item at index, shifting the tail right. The index must
// be within [0, len(items)].
func insertAt(items []Item, index int, item Item) []Item {
	items = append(items, Item{})
	copy(items[index+1:], items[index:])
	items[index] = item
	return items
}
