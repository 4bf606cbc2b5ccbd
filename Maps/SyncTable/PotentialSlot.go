package SyncTable

type slotState byte

const (
	vacant    slotState = iota //the key is absent and can go at index.
	occupied                   //the key is present at index.
	needsGrow                  //no vacancy within the probe bound.
)

// PotentialSlot is the result of LockedWrite.Find: where a key is, or where it would be inserted. It belongs to the guard that produced it; using it after that guard is released panics with a *horde.ContractError.
type PotentialSlot[K comparable, V any] struct {
	t      *SyncTable[K, V]
	serial uint64
	gen    *generation[K, V]
	items  uint64 //gen's length when computed; any insert since invalidates index.
	hash   uint64
	key    K
	index  uint64
	dist   int
	state  slotState
}

// Occupied reports whether the key was found.
func (s PotentialSlot[K, V]) Occupied() bool {
	return s.state == occupied
}

// Vacant reports whether the key is absent and fits in the current generation without growing.
func (s PotentialSlot[K, V]) Vacant() bool {
	return s.state == vacant
}

// Key the slot was computed for.
func (s PotentialSlot[K, V]) Key() K {
	return s.key
}

// Value returns the address of the stored value of an occupied slot, nil otherwise. The address is valid while the guard is held and the table doesn't grow; a live Pin from the table's Domain keeps it valid past both.
func (s PotentialSlot[K, V]) Value() *V {
	s.t.lock.Check("PotentialSlot.Value", s.serial)
	if s.state != occupied {
		return nil
	}
	if g := s.t.gen.Load(); g != s.gen { //the generation s points into may already be recycled.
		if sl := s.t.lookup(g, s.key); sl != nil {
			return &sl.val
		}
		return nil
	}
	return &s.gen.slots.At(s.index).val
}
