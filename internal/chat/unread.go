package chat

// UnreadIDs returns the IDs of messages addressed to userID that have no
// read timestamp yet. It is recomputed on every observation rather than
// cached: the window of held messages is small and bounded.
func UnreadIDs(msgs []Message, userID int) []string {
	var ids []string
	for _, m := range msgs {
		if m.SenderID != userID && m.Read == nil {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// UnreadCount returns the number of unread messages addressed to userID.
func UnreadCount(msgs []Message, userID int) int {
	n := 0
	for _, m := range msgs {
		if m.SenderID != userID && m.Read == nil {
			n++
		}
	}
	return n
}

// TotalUnread sums unread counts across conversations, for the aggregate
// badge on the window or tab title.
func TotalUnread(convs []*Conversation, userID int) int {
	total := 0
	for _, c := range convs {
		total += UnreadCount(c.Messages, userID)
	}
	return total
}
