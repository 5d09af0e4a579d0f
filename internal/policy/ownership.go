package policy

// Owned is implemented by entities that have a single owning user.
type Owned interface {
	OwnerID() uint
}

// CanModify reports whether actor may edit or delete entity.
// There is no administrative override.
func CanModify(entity Owned, actor Actor) bool {
	if entity == nil {
		return false
	}
	return actor.Is(entity.OwnerID())
}
