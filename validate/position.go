package validate

// Insertion positions for fixed-in blocks are derived from the missing keys
// themselves, so two runs over the same inputs produce byte-identical
// files, while unrelated key sets land at unrelated positions. The hash is
// the murmur3 64-bit finalizer folded over each key's length and character
// codes.

const positionSeed = 0x9747b28c

func fmix64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// insertPos maps a sorted set of missing keys to a position among the
// existing non-reserved keys: 0 through existingCount-1, so the block
// always lands before some existing key, never at the very end. An empty
// file pins the block to the top.
func insertPos(missingSorted []string, existingCount int) int {
	if existingCount <= 0 {
		return 0
	}
	h := uint64(positionSeed)
	for _, k := range missingSorted {
		h = fmix64(h ^ uint64(len(k)))
		for i := 0; i < len(k); i++ {
			h = fmix64(h ^ uint64(k[i]))
		}
	}
	return int(h % uint64(existingCount))
}
