package revision

import "fmt"

// djb2Seed is the classic DJB2 initial hash value.
const djb2Seed uint32 = 5381

// DJB2Hex computes a DJB2-style rolling 32-bit hash over s and renders it as lowercase
// hex. Spec §4.1 requires this exact algorithm: revisions are visible to clients and
// compared across processes, so any deviation (a different seed, a different byte
// order, a stronger hash) would break cross-process optimistic concurrency.
func DJB2Hex(s string) string {
	h := djb2Seed
	for i := 0; i < len(s); i++ {
		h = ((h << 5) + h) + uint32(s[i]) // h*33 + c
	}
	return fmt.Sprintf("%08x", h)
}
