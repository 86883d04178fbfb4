package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/stream"
	"github.com/Rawann0m/EcoNest-sub000/internal/testutil"
)

func newTestMessageService() (*MessageService, *MockMessageRepository, *MockUserRepository, *stream.Broker) {
	msgRepo := NewMockMessageRepository()
	userRepo := NewMockUserRepository()
	broker := stream.NewBroker()

	userRepo.Create(&models.User{ID: 1, Username: "alice", Email: "alice@example.com", ReceiveMessages: true})
	userRepo.Create(&models.User{ID: 2, Username: "bob", Email: "bob@example.com", ReceiveMessages: true})

	svc := NewMessageService(msgRepo, userRepo, broker, nil, nil)
	return svc, msgRepo, userRepo, broker
}

func textParts(text string) models.ContentParts {
	return models.ContentParts{{Kind: models.TextPart, Text: text}}
}

func TestSendMessageWritesBothCopies(t *testing.T) {
	svc, msgRepo, _, _ := newTestMessageService()
	ctx := context.Background()

	sent, err := svc.SendMessage(ctx, 1, SendMessageInput{
		RecipientID: 2,
		ClientID:    "client-1",
		Parts:       textParts("hello"),
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	senderSide, err := msgRepo.FindThread(ctx, 1, 2, 0, 10)
	if err != nil {
		t.Fatalf("FindThread sender: %v", err)
	}
	recipientSide, err := msgRepo.FindThread(ctx, 2, 1, 0, 10)
	if err != nil {
		t.Fatalf("FindThread recipient: %v", err)
	}

	if len(senderSide) != 1 || len(recipientSide) != 1 {
		t.Fatalf("copies = %d/%d, want 1/1", len(senderSide), len(recipientSide))
	}
	if senderSide[0].MessageID != recipientSide[0].MessageID {
		t.Errorf("MessageID differs between copies: %q vs %q", senderSide[0].MessageID, recipientSide[0].MessageID)
	}
	if !senderSide[0].SentAt.Equal(recipientSide[0].SentAt) {
		t.Errorf("SentAt differs between copies")
	}
	if !senderSide[0].IsRead {
		t.Errorf("sender copy should start read")
	}
	if recipientSide[0].IsRead {
		t.Errorf("recipient copy should start unread")
	}
	if sent.MessageID != senderSide[0].MessageID {
		t.Errorf("returned message is not the sender copy")
	}
}

func TestSendMessageUpdatesBothSummaries(t *testing.T) {
	svc, msgRepo, _, _ := newTestMessageService()
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("hi bob")}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	senderSummary, err := msgRepo.GetSummary(ctx, 1, 2)
	if err != nil {
		t.Fatalf("GetSummary sender: %v", err)
	}
	recipientSummary, err := msgRepo.GetSummary(ctx, 2, 1)
	if err != nil {
		t.Fatalf("GetSummary recipient: %v", err)
	}

	if senderSummary.PeerUsername != "bob" {
		t.Errorf("sender summary peer = %q, want bob", senderSummary.PeerUsername)
	}
	if recipientSummary.PeerUsername != "alice" {
		t.Errorf("recipient summary peer = %q, want alice", recipientSummary.PeerUsername)
	}
	if senderSummary.UnreadCount != 0 {
		t.Errorf("sender unread = %d, want 0", senderSummary.UnreadCount)
	}
	if recipientSummary.UnreadCount != 1 {
		t.Errorf("recipient unread = %d, want 1", recipientSummary.UnreadCount)
	}
}

func TestSendMessageDeduplicatesByClientID(t *testing.T) {
	svc, msgRepo, _, _ := newTestMessageService()
	ctx := context.Background()

	input := SendMessageInput{RecipientID: 2, ClientID: "resend-1", Parts: textParts("once")}
	first, err := svc.SendMessage(ctx, 1, input)
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	second, err := svc.SendMessage(ctx, 1, input)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}

	if first.MessageID != second.MessageID {
		t.Errorf("resend created a new message")
	}
	thread, _ := msgRepo.FindThread(ctx, 2, 1, 0, 10)
	if len(thread) != 1 {
		t.Errorf("recipient has %d copies, want 1", len(thread))
	}
}

func TestSendMessageGateBlocksNewConversationsOnly(t *testing.T) {
	svc, _, userRepo, _ := newTestMessageService()
	ctx := context.Background()

	// An open thread, then bob opts out.
	if _, err := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("before opt-out")}); err != nil {
		t.Fatalf("initial send: %v", err)
	}
	bob, _ := userRepo.FindByID(2)
	bob.ReceiveMessages = false
	userRepo.Update(bob)

	// Existing thread stays open.
	if _, err := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("still works")}); err != nil {
		t.Errorf("send into existing thread: %v", err)
	}

	// A third user cannot start a new one.
	userRepo.Create(&models.User{ID: 3, Username: "carol", Email: "carol@example.com", ReceiveMessages: true})
	_, err := svc.SendMessage(ctx, 3, SendMessageInput{RecipientID: 2, Parts: textParts("hello stranger")})
	if !errors.Is(err, models.ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestSendMessageRejectsInvalidInput(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	tests := []struct {
		name  string
		input SendMessageInput
	}{
		{"self send", SendMessageInput{RecipientID: 1, Parts: textParts("me")}},
		{"missing recipient", SendMessageInput{Parts: textParts("void")}},
		{"empty parts", SendMessageInput{RecipientID: 2, Parts: models.ContentParts{}}},
		{"unknown recipient", SendMessageInput{RecipientID: 99, Parts: textParts("hi")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SendMessage(ctx, 1, tt.input); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestSendMessageRetriesTransientFailures(t *testing.T) {
	svc, msgRepo, _, _ := newTestMessageService()
	ctx := context.Background()

	// Two transient failures, then success.
	msgRepo.failWith = &models.WriteError{Op: "message.create", Err: errors.New("connection reset")}
	msgRepo.failTimes = 2

	if _, err := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("eventually")}); err != nil {
		t.Fatalf("SendMessage after retries: %v", err)
	}
	if msgRepo.attempts != 3 {
		t.Errorf("attempts = %d, want 3", msgRepo.attempts)
	}
}

func TestSendMessageRecoversFromInsertRace(t *testing.T) {
	svc, msgRepo, _, _ := newTestMessageService()
	ctx := context.Background()

	// A concurrent resend lands the same client id after the dedup
	// pre-check but before our insert. The unique index rejects the
	// write and the service must hand back the winning row.
	msgRepo.beforeCreatePair = func() {
		msgRepo.messages = append(msgRepo.messages, &models.Message{
			ID:        msgRepo.nextID,
			MessageID: "winner",
			OwnerID:   1,
			PeerID:    2,
			SenderID:  1,
			ClientID:  "race-1",
			Parts:     textParts("first resend"),
			SentAt:    time.Now().UTC(),
		})
		msgRepo.nextID++
	}

	sent, err := svc.SendMessage(ctx, 1, SendMessageInput{
		RecipientID: 2,
		ClientID:    "race-1",
		Parts:       textParts("second resend"),
	})
	if err != nil {
		t.Fatalf("SendMessage after losing the race: %v", err)
	}
	if sent.MessageID != "winner" {
		t.Errorf("MessageID = %q, want the winning row", sent.MessageID)
	}
	if msgRepo.attempts != 1 {
		t.Errorf("attempts = %d, want 1 (duplicates are not retried)", msgRepo.attempts)
	}
}

func TestSendMessageDoesNotRetryPermanentFailures(t *testing.T) {
	svc, msgRepo, _, _ := newTestMessageService()
	ctx := context.Background()

	msgRepo.failWith = &models.WriteError{Op: "message.create", Err: models.ErrPermissionDenied}

	if _, err := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("nope")}); err == nil {
		t.Fatalf("expected error")
	}
	if msgRepo.attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on permanent failure)", msgRepo.attempts)
	}
}

func TestMarkThreadReadOnlyTouchesOwnCopy(t *testing.T) {
	svc, msgRepo, _, _ := newTestMessageService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("msg")}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	cleared, err := svc.MarkThreadRead(ctx, 2, 1)
	if err != nil {
		t.Fatalf("MarkThreadRead: %v", err)
	}
	if cleared != 3 {
		t.Errorf("cleared = %d, want 3", cleared)
	}

	unread, _ := msgRepo.CountUnread(ctx, 2, 1)
	if unread != 0 {
		t.Errorf("recipient unread = %d, want 0", unread)
	}

	// Sender copies were already read and stay unchanged.
	senderSide, _ := msgRepo.FindThread(ctx, 1, 2, 0, 10)
	for _, msg := range senderSide {
		if !msg.IsRead {
			t.Errorf("sender copy flipped unexpectedly")
		}
	}

	// Idempotent.
	cleared, err = svc.MarkThreadRead(ctx, 2, 1)
	if err != nil {
		t.Fatalf("second MarkThreadRead: %v", err)
	}
	if cleared != 0 {
		t.Errorf("second cleared = %d, want 0", cleared)
	}
}

func TestMarkThreadReadPublishesRefreshedSummary(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("unread")}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	sub := svc.SubscribeSummaries(2)
	defer sub.Cancel()

	if _, err := svc.MarkThreadRead(ctx, 2, 1); err != nil {
		t.Fatalf("MarkThreadRead: %v", err)
	}

	select {
	case event := <-sub.Events():
		if event.Type != stream.EventModified || event.Entity != "summary" {
			t.Fatalf("got %s/%s, want modified/summary", event.Type, event.Entity)
		}
		summary, ok := event.Payload.(*models.ConversationSummary)
		if !ok {
			t.Fatalf("payload type = %T, want *models.ConversationSummary", event.Payload)
		}
		if summary.PeerID != 1 {
			t.Errorf("summary peer = %d, want 1", summary.PeerID)
		}
		if summary.UnreadCount != 0 {
			t.Errorf("summary unread = %d, want 0 after clearing", summary.UnreadCount)
		}
	case <-time.After(time.Second):
		t.Fatal("no summary event published")
	}
}

func TestMarkReadSpecificMessages(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	first, _ := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("one")})
	svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("two")})

	cleared, err := svc.MarkRead(ctx, 2, 1, []string{first.MessageID, "no-such-id"})
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if cleared != 1 {
		t.Errorf("cleared = %d, want 1", cleared)
	}

	unread, _ := svc.CountUnread(ctx, 2, 1)
	if unread != 1 {
		t.Errorf("unread = %d, want 1", unread)
	}
}

func TestDeleteThreadIsOneSided(t *testing.T) {
	svc, msgRepo, _, _ := newTestMessageService()
	ctx := context.Background()

	svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("keep me on one side")})

	if err := svc.DeleteThread(ctx, 1, 2); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}

	senderSide, _ := msgRepo.FindThread(ctx, 1, 2, 0, 10)
	if len(senderSide) != 0 {
		t.Errorf("deleter still has %d messages", len(senderSide))
	}
	recipientSide, _ := msgRepo.FindThread(ctx, 2, 1, 0, 10)
	if len(recipientSide) != 1 {
		t.Errorf("peer lost messages: %d, want 1", len(recipientSide))
	}
	if _, err := msgRepo.GetSummary(ctx, 1, 2); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("deleter summary should be gone")
	}
	if _, err := msgRepo.GetSummary(ctx, 2, 1); err != nil {
		t.Errorf("peer summary should survive: %v", err)
	}
}

func TestListConversationsOrderAndUnread(t *testing.T) {
	svc, _, userRepo, _ := newTestMessageService()
	ctx := context.Background()

	userRepo.Create(&models.User{ID: 3, Username: "carol", Email: "carol@example.com", ReceiveMessages: true})

	svc.SendMessage(ctx, 2, SendMessageInput{RecipientID: 1, Parts: textParts("from bob")})
	time.Sleep(2 * time.Millisecond)
	svc.SendMessage(ctx, 3, SendMessageInput{RecipientID: 1, Parts: textParts("from carol")})
	svc.SendMessage(ctx, 3, SendMessageInput{RecipientID: 1, Parts: textParts("again")})

	summaries, err := svc.ListConversations(ctx, 1, 50)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].PeerID != 3 {
		t.Errorf("newest conversation should be carol's, got peer %d", summaries[0].PeerID)
	}
	if summaries[0].UnreadCount != 2 {
		t.Errorf("carol thread unread = %d, want 2", summaries[0].UnreadCount)
	}
	if summaries[1].UnreadCount != 1 {
		t.Errorf("bob thread unread = %d, want 1", summaries[1].UnreadCount)
	}
}

func TestSendMessagePublishesToBothThreadTopics(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	senderSub := svc.SubscribeThread(1, 2)
	defer senderSub.Cancel()
	recipientSub := svc.SubscribeThread(2, 1)
	defer recipientSub.Cancel()

	if _, err := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts("live")}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	for name, sub := range map[string]*stream.Subscription{"sender": senderSub, "recipient": recipientSub} {
		select {
		case event := <-sub.Events():
			if event.Type != stream.EventAdded || event.Entity != "message" {
				t.Errorf("%s got %s/%s, want added/message", name, event.Type, event.Entity)
			}
		case <-time.After(time.Second):
			t.Errorf("%s subscription received nothing", name)
		}
	}
}

func TestGetThreadPagesOldestFirst(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		if _, err := svc.SendMessage(ctx, 1, SendMessageInput{RecipientID: 2, Parts: textParts(text)}); err != nil {
			t.Fatalf("send %q: %v", text, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	thread, err := svc.GetThread(ctx, 2, 1, 0, 10)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if len(thread) != 3 {
		t.Fatalf("thread len = %d, want 3", len(thread))
	}
	if thread[0].Parts.Preview(0) != "first" || thread[2].Parts.Preview(0) != "third" {
		t.Errorf("thread not in chronological order: %q ... %q", thread[0].Parts.Preview(0), thread[2].Parts.Preview(0))
	}
}

func TestCountUnreadFromSeededPair(t *testing.T) {
	svc, msgRepo, userRepo, _ := newTestMessageService()
	ctx := context.Background()
	h := testutil.NewTestHelper(t)

	userRepo.Create(h.CreateTestUser(3, "carol", "carol@example.com"))
	senderCopy, recipientCopy := h.CreateTestMessagePair(3, 1, "hi alice")

	summaries := []models.ConversationSummary{
		{OwnerID: 3, PeerID: 1, LastMessageID: senderCopy.MessageID, LastSenderID: 3, LastSentAt: senderCopy.SentAt},
		{OwnerID: 1, PeerID: 3, LastMessageID: senderCopy.MessageID, LastSenderID: 3, LastSentAt: senderCopy.SentAt},
	}
	if err := msgRepo.CreatePair(ctx, &senderCopy, &recipientCopy, summaries); err != nil {
		t.Fatalf("CreatePair: %v", err)
	}

	unread, err := svc.CountUnread(ctx, 1, 3)
	if err != nil {
		t.Fatalf("CountUnread recipient: %v", err)
	}
	if unread != 1 {
		t.Errorf("recipient unread = %d, want 1", unread)
	}

	unread, err = svc.CountUnread(ctx, 3, 1)
	if err != nil {
		t.Fatalf("CountUnread sender: %v", err)
	}
	if unread != 0 {
		t.Errorf("sender unread = %d, want 0 (own copy is pre-read)", unread)
	}
}
