package chat

import "time"

// Message is a single direct message. Messages are immutable once created
// except for Read, which transitions once from nil to a timestamp.
type Message struct {
	ID        string     `json:"id"`
	SenderID  int        `json:"senderId"`
	Body      string     `json:"body"`
	Read      *time.Time `json:"read"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Conversation is a two-party message thread. An empty ID marks a draft:
// a locally created conversation that has not yet round-tripped its first
// message with the server.
type Conversation struct {
	ID          string    `json:"id"`
	SenderID    int       `json:"senderId"`
	RecipientID int       `json:"recipientId"`
	Messages    []Message `json:"messages"`

	// BottomMessage is an ephemeral preview used only for list and search
	// rendering. It is never merged into Messages.
	BottomMessage *Message `json:"bottomMessage,omitempty"`

	// LocalID identifies a draft until the server assigns a real ID.
	LocalID string `json:"-"`
}

// Persisted reports whether the conversation exists on the server.
func (c *Conversation) Persisted() bool {
	return c.ID != ""
}

// Counterpart returns the other party's user ID from the perspective of
// currentUserID.
func (c *Conversation) Counterpart(currentUserID int) int {
	if c.SenderID == currentUserID {
		return c.RecipientID
	}
	return c.SenderID
}

// LastMessage returns the preview message if present, otherwise the newest
// message in the sequence, or nil for an empty conversation.
func (c *Conversation) LastMessage() *Message {
	if c.BottomMessage != nil {
		return c.BottomMessage
	}
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// OldestMessage returns the earliest message, or nil for an empty
// conversation. Used as the pagination cursor.
func (c *Conversation) OldestMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[0]
}

// Clone returns a deep copy of the conversation. Store mutations operate on
// clones so observers only ever see atomic snapshot transitions.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	if c.BottomMessage != nil {
		bm := *c.BottomMessage
		cp.BottomMessage = &bm
	}
	return &cp
}

// User is the minimal user representation carried in relationship lists.
type User struct {
	ID          int        `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	AboutMe     string     `json:"aboutMe"`
	Gravatar    string     `json:"gravatar"`
	MemberSince *time.Time `json:"memberSince,omitempty"`
	LastSeen    *time.Time `json:"lastSeen,omitempty"`
}

// Relationships is the friend-graph summary as it affects conversation
// visibility: accepted friends, pending requests, and other known users.
type Relationships struct {
	Friends  []User `json:"friends"`
	Requests []User `json:"friendRequests"`
	Others   []User `json:"others"`
}

// UserByID looks a user up across all three relationship lists.
func (r Relationships) UserByID(id int) (User, bool) {
	for _, list := range [][]User{r.Friends, r.Requests, r.Others} {
		for _, u := range list {
			if u.ID == id {
				return u, true
			}
		}
	}
	return User{}, false
}

// IsFriend reports whether id is in the accepted-friends list.
func (r Relationships) IsFriend(id int) bool {
	for _, u := range r.Friends {
		if u.ID == id {
			return true
		}
	}
	return false
}

// Profile is a full user profile as returned by user search.
type Profile struct {
	Name              string     `json:"name"`
	Username          string     `json:"username"`
	Location          string     `json:"location"`
	Gravatar          string     `json:"gravatar"`
	AboutMe           string     `json:"aboutMe"`
	LastSeen          *time.Time `json:"lastSeen,omitempty"`
	MemberSince       *time.Time `json:"memberSince,omitempty"`
	NumberOfFriends   int        `json:"numberOfFriends"`
	RelationshipState string     `json:"relationshipState"`
}
