package chat

import "slices"

// MergeMessages folds incoming into existing, dropping any incoming message
// whose ID is already present, and returns the union sorted ascending by
// creation time. This is the single place duplicate suppression happens:
// every boundary where server data enters a conversation (initial fetch,
// push-triggered refetch, pagination page, send response) goes through it.
//
// The operation is idempotent and insensitive to the order of incoming.
// Neither input slice is mutated.
func MergeMessages(existing, incoming []Message) []Message {
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[m.ID] = struct{}{}
	}

	merged := make([]Message, len(existing), len(existing)+len(incoming))
	copy(merged, existing)
	for _, m := range incoming {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}

	slices.SortStableFunc(merged, func(a, b Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return merged
}

// ContainsAll reports whether every message in batch is already present in
// msgs by ID. The sync engine uses this to skip store writes (and observer
// wakeups) when a refetch brought nothing new.
func ContainsAll(msgs, batch []Message) bool {
	if len(batch) == 0 {
		return true
	}
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		seen[m.ID] = struct{}{}
	}
	for _, m := range batch {
		if _, ok := seen[m.ID]; !ok {
			return false
		}
	}
	return true
}
