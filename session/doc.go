// Package session implements the session manager of spec §4.4: it lives
// entirely inside the committed-entry applier, so every replica derives
// identical session state from the same applied log entries, with no
// wall-clock dependency.
//
// (gyuho-db mvcc.treeIndex wraps a sync.RWMutex around a *btree.BTree;
// the per-session response cache and event buffer here follow the same
// shape, ordered by command sequence / event index instead of mvcc
// revision)
package session
