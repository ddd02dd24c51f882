package model

import "fmt"

// ItemKind identifies the kind of catalog item being purchased
type ItemKind string

const (
	ItemKindBook             ItemKind = "book"
	ItemKindAudioBook        ItemKind = "audio_book"
	ItemKindSubscriptionPlan ItemKind = "subscription_plan"
)

// Valid reports whether k is a known item kind
func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindBook, ItemKindAudioBook, ItemKindSubscriptionPlan:
		return true
	}
	return false
}

// ItemRef references a sellable catalog item
type ItemRef struct {
	Kind ItemKind `gorm:"column:item_kind;size:32;not null" json:"item_kind"`
	ID   string   `gorm:"column:item_id;size:100;not null" json:"item_id"`
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// IsSubscription reports whether the item is a platform subscription plan,
// which has no author to settle with.
func (r ItemRef) IsSubscription() bool {
	return r.Kind == ItemKindSubscriptionPlan
}
