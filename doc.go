/*
Package horde holds what the concurrent collections in Vecs and Maps share: configuration, errors, hash strategies, and the Domain that decides when superseded storage can be reused.

# Access modes
Every collection splits access three ways. A Read never blocks and never sees a partially written element. A Write is the shareable right to ask for exclusive access, and Lock turns it into a LockedWrite, the only handle that can mutate. Go can't tie a value to a goroutine, so a LockedWrite checks at run time that it wasn't released already and that it stays on the goroutine that locked it. WithGuardCheck(false) drops the goroutine check from everything but Unlock. Misuse panics with a *ContractError.

# Pins
A table replaces its whole slot array when it grows. Readers that may still be looking at the old array hold a Pin, and the old array is handed to Domain.Retire instead of being dropped. It is recycled once every Pin taken before the retirement has been released. Pins are cheap: one CAS on a registry slot to take, one store to release.

# Errors
Growth that would pass a limit returns a *CapacityError, a table that can't place a key within the probe bound returns a *ProbeError. Both leave the collection as it was.
*/
package horde
