package ownership

import "github.com/emperorhan/ownership-indexer/internal/domain/model"

const DefaultFragmentSize = 10

// SplitShards cuts claims into consecutive shards of at most fragmentSize
// addresses, keeping address insertion order. fragmentSize <= 0 means the
// default.
func SplitShards(claims *model.Claims, fragmentSize int) [][]model.ClaimEntry {
	if fragmentSize <= 0 {
		fragmentSize = DefaultFragmentSize
	}
	entries := claims.Entries()
	shards := make([][]model.ClaimEntry, 0, (len(entries)+fragmentSize-1)/fragmentSize)
	for start := 0; start < len(entries); start += fragmentSize {
		end := start + fragmentSize
		if end > len(entries) {
			end = len(entries)
		}
		shards = append(shards, entries[start:end])
	}
	return shards
}
