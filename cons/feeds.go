package cons

import "fmt"

// Feed kinds served by the realtime coordinator. Each (room, feed) pair is
// backed by exactly one pub/sub channel on the change-feed notifier.
const (
	FeedMessages = "messages"
	FeedTyping   = "typing"
	FeedPresence = "presence"
)

// Change-feed operations carried in store.Event.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Logical table names carried in change events, so subscribers can tell a
// message write from a reaction write on the same room channel.
const (
	TableMessages         = "messages"
	TableMessageReactions = "message_reactions"
	TableTypingIndicators = "typing_indicators"
	TableUserPresence     = "user_presence"
)

// MessagesChannel is the per-room channel for message and reaction changes.
func MessagesChannel(roomID uint64) string {
	return fmt.Sprintf("chat:room:%d:messages", roomID)
}

// TypingChannel is the per-room channel for typing indicator changes.
func TypingChannel(roomID uint64) string {
	return fmt.Sprintf("chat:room:%d:typing", roomID)
}

// PresenceChannel carries presence changes for all users. Presence is global
// (not room scoped), so every presence feed listens to the same channel and
// refetches just its own room's members.
const PresenceChannel = "chat:presence"
