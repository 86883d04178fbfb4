package stream

import "fmt"

// Topic naming shared by services and the WebSocket transport.
//
// Thread topics are per (owner, peer) inbox copy: each side of a
// conversation has its own topic, so one-sided deletes and read-state
// changes only reach the owner.

func ThreadTopic(ownerID, peerID uint) string {
	return fmt.Sprintf("thread:%d:%d", ownerID, peerID)
}

func SummariesTopic(ownerID uint) string {
	return fmt.Sprintf("summaries:%d", ownerID)
}

func FeedTopic(communityID uint) string {
	return fmt.Sprintf("feed:%d", communityID)
}

func ReplyCountTopic(postID uint) string {
	return fmt.Sprintf("replycount:%d", postID)
}
