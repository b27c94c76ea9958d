package automation

import "errors"

var (
	// ErrListingNotFound means the item id has no local listing row.
	ErrListingNotFound = errors.New("listing not found")

	// ErrRelistCooldown means a successful relist already happened inside
	// the cooldown window. Applies to manual relists too; the cooldown
	// invariant has no manual bypass.
	ErrRelistCooldown = errors.New("relist cooldown in effect")
)
