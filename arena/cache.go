package arena

const treeCacheSize = 32

type treeCacheEntry struct {
	epoch      uint64
	start, end int
}

// treeCache memoizes ends of recently measured trees. Entries are valid only for the epoch they were computed in.
type treeCache [treeCacheSize]treeCacheEntry
