package services

import (
	"errors"
	"testing"
	"time"

	"handoff-client/internal/models"
)

func newChat(t *testing.T) *ChatStore {
	t.Helper()
	c := NewChatStore(func() string { return "me" })
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var tick int
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return c
}

func TestSendMessageCreatesConversation(t *testing.T) {
	c := newChat(t)

	msg, err := c.SendMessage("seller-1", "  Is this still available?  ")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.SenderID != "me" || msg.ReceiverID != "seller-1" || msg.Text != "Is this still available?" || !msg.IsRead {
		t.Fatalf("unexpected message: %+v", msg)
	}

	convs := c.Conversations()
	if len(convs) != 1 {
		t.Fatalf("expected one conversation, got %d", len(convs))
	}
	if convs[0].User.ID != "seller-1" || convs[0].LastMessage.Text != msg.Text || convs[0].UnreadCount != 0 {
		t.Fatalf("unexpected conversation: %+v", convs[0])
	}

	if _, err := c.SendMessage("seller-1", "Hello?"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := c.GetMessages("seller-1"); len(got) != 2 || got[1].Text != "Hello?" {
		t.Fatalf("expected two messages in order, got %+v", got)
	}
	if len(c.Conversations()) != 1 {
		t.Fatalf("expected conversation reused")
	}
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	c := newChat(t)
	if _, err := c.SendMessage("seller-1", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(c.Conversations()) != 0 {
		t.Fatalf("expected no conversation created")
	}
}

func TestGetMessagesUnknownIsEmpty(t *testing.T) {
	c := newChat(t)
	got := c.GetMessages("nobody")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestGetMessagesReturnsCopy(t *testing.T) {
	c := newChat(t)
	_, _ = c.SendMessage("seller-1", "one")

	got := c.GetMessages("seller-1")
	got[0].Text = "changed"
	if c.GetMessages("seller-1")[0].Text != "one" {
		t.Fatalf("store mutated through returned slice")
	}
}

func TestReceiveAndMarkAsRead(t *testing.T) {
	c := newChat(t)
	from := models.Counterpart{ID: "buyer-1", Name: "Karim", VarsityID: "buyer-1"}

	for _, text := range []string{"Hi", "Can you do 500?"} {
		if _, err := c.ReceiveMessage(from, text); err != nil {
			t.Fatalf("ReceiveMessage: %v", err)
		}
	}
	conv := c.Conversations()[0]
	if conv.UnreadCount != 2 || c.UnreadTotal() != 2 {
		t.Fatalf("expected 2 unread, got %d", conv.UnreadCount)
	}

	c.MarkAsRead(conv.ID)
	if c.Conversations()[0].UnreadCount != 0 {
		t.Fatalf("expected unread cleared")
	}
	for _, m := range c.GetMessages("buyer-1") {
		if !m.IsRead {
			t.Fatalf("expected message %s read", m.ID)
		}
	}

	// Unknown IDs are ignored.
	c.MarkAsRead("missing")
}

func TestConversationsMostRecentFirst(t *testing.T) {
	c := newChat(t)
	_, _ = c.SendMessage("a", "first")
	_, _ = c.SendMessage("b", "second")
	_, _ = c.SendMessage("a", "third")

	convs := c.Conversations()
	if len(convs) != 2 || convs[0].User.ID != "a" || convs[1].User.ID != "b" {
		t.Fatalf("unexpected order: %+v", convs)
	}

	c.Reset()
	if len(c.Conversations()) != 0 || len(c.GetMessages("a")) != 0 {
		t.Fatalf("expected empty store after reset")
	}
}
