package session

import "github.com/google/btree"

const treeDegree = 32

// responseItem caches one command's result, keyed by sequence, so a
// retried CommandRequest with the same sequence replays the cached
// result instead of re-executing the operation (spec §4.4 "exactly-once").
type responseItem struct {
	seq  uint64
	data []byte
	err  error
}

func (i *responseItem) Less(than btree.Item) bool {
	return i.seq < than.(*responseItem).seq
}

// eventItem buffers one published event awaiting acknowledgement via
// keep-alive (spec §4.4 "Event publication").
type eventItem struct {
	index uint64
	data  []byte
}

func (i *eventItem) Less(than btree.Item) bool {
	return i.index < than.(*eventItem).index
}

// responseCache wraps a *btree.BTree the way gyuho-db's mvcc.treeIndex
// wraps its revision index: the tree itself carries no lock, callers
// serialize through the owning Session/Manager.
type responseCache struct {
	tree *btree.BTree
}

func newResponseCache() *responseCache {
	return &responseCache{tree: btree.New(treeDegree)}
}

func (c *responseCache) put(seq uint64, data []byte, err error) {
	c.tree.ReplaceOrInsert(&responseItem{seq: seq, data: data, err: err})
}

func (c *responseCache) get(seq uint64) (*responseItem, bool) {
	item := c.tree.Get(&responseItem{seq: seq})
	if item == nil {
		return nil, false
	}
	return item.(*responseItem), true
}

// evictThrough deletes every cached response with sequence <= seq
// (spec §4.4 "evict response-cache entries with sequence <= commandSequence").
func (c *responseCache) evictThrough(seq uint64) {
	var stale []btree.Item
	c.tree.AscendLessThan(&responseItem{seq: seq + 1}, func(item btree.Item) bool {
		stale = append(stale, item)
		return true
	})
	for _, item := range stale {
		c.tree.Delete(item)
	}
}

// eventBuffer is the analogous ordered buffer for unacknowledged events.
type eventBuffer struct {
	tree *btree.BTree
}

func newEventBuffer() *eventBuffer {
	return &eventBuffer{tree: btree.New(treeDegree)}
}

func (b *eventBuffer) put(index uint64, data []byte) {
	b.tree.ReplaceOrInsert(&eventItem{index: index, data: data})
}

// replay returns every buffered event with index > afterIndex, in order,
// so a reconnecting client can resume from its last received index
// (spec §4.4 "can receive any unacknowledged replays within the
// retention window").
func (b *eventBuffer) replay(afterIndex uint64) [][]byte {
	var out [][]byte
	b.tree.AscendGreaterOrEqual(&eventItem{index: afterIndex + 1}, func(item btree.Item) bool {
		out = append(out, item.(*eventItem).data)
		return true
	})
	return out
}

// evictThrough deletes every buffered event with index <= index.
func (b *eventBuffer) evictThrough(index uint64) {
	var stale []btree.Item
	b.tree.AscendLessThan(&eventItem{index: index + 1}, func(item btree.Item) bool {
		stale = append(stale, item)
		return true
	})
	for _, item := range stale {
		b.tree.Delete(item)
	}
}
