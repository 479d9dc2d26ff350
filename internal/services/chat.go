package services

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"handoff-client/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ChatStore keeps conversations and messages in memory for the lifetime of
// the process. There is no transport: messages never leave the device.
type ChatStore struct {
	mu            sync.RWMutex
	selfID        func() string
	conversations map[string]*models.Conversation // key: conversation ID
	byCounterpart map[string]string               // counterpart ID -> conversation ID
	messages      map[string][]models.Message     // key: counterpart ID
	now           func() time.Time
	subs          listeners
}

// NewChatStore creates an empty chat store. selfID names the local user and
// is consulted on every send.
func NewChatStore(selfID func() string) *ChatStore {
	return &ChatStore{
		selfID:        selfID,
		conversations: make(map[string]*models.Conversation),
		byCounterpart: make(map[string]string),
		messages:      make(map[string][]models.Message),
		now:           time.Now,
	}
}

// SendMessage appends an outgoing message to the thread with counterpartID
func (s *ChatStore) SendMessage(counterpartID, text string) (models.Message, error) {
	return s.append(models.Counterpart{ID: counterpartID, VarsityID: counterpartID}, text, true)
}

// ReceiveMessage appends an incoming message and bumps the unread count
func (s *ChatStore) ReceiveMessage(from models.Counterpart, text string) (models.Message, error) {
	return s.append(from, text, false)
}

func (s *ChatStore) append(counterpart models.Counterpart, text string, outgoing bool) (models.Message, error) {
	text = strings.TrimSpace(text)
	if counterpart.ID == "" {
		return models.Message{}, invalid(errors.New("counterpart is required"))
	}
	if text == "" {
		return models.Message{}, invalid(errors.New("message text is required"))
	}

	self := s.selfID()
	msg := models.Message{
		ID:        uuid.New().String(),
		Text:      text,
		Timestamp: s.now().UTC(),
		IsRead:    outgoing,
	}
	if outgoing {
		msg.SenderID, msg.ReceiverID = self, counterpart.ID
	} else {
		msg.SenderID, msg.ReceiverID = counterpart.ID, self
	}

	s.mu.Lock()
	s.messages[counterpart.ID] = append(s.messages[counterpart.ID], msg)
	conv := s.conversationLocked(counterpart)
	conv.LastMessage = models.LastMessage{Text: msg.Text, Time: msg.Timestamp}
	if !outgoing {
		conv.UnreadCount++
	}
	convID := conv.ID
	s.mu.Unlock()
	s.subs.notify()

	log.Debug().
		Str("conversation_id", convID).
		Bool("outgoing", outgoing).
		Msg("Chat message stored")
	return msg, nil
}

// conversationLocked returns the conversation for counterpart, creating it if needed.
func (s *ChatStore) conversationLocked(counterpart models.Counterpart) *models.Conversation {
	if id, ok := s.byCounterpart[counterpart.ID]; ok {
		conv := s.conversations[id]
		if conv.User.Name == "" && counterpart.Name != "" {
			conv.User.Name = counterpart.Name
		}
		return conv
	}
	conv := &models.Conversation{
		ID:   uuid.New().String(),
		User: counterpart,
	}
	s.conversations[conv.ID] = conv
	s.byCounterpart[counterpart.ID] = conv.ID
	return conv
}

// GetMessages returns the thread with userID in send order; empty if none.
func (s *ChatStore) GetMessages(userID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages[userID]))
	copy(out, s.messages[userID])
	return out
}

// MarkAsRead zeroes the unread count of a conversation. Unknown IDs are ignored.
func (s *ChatStore) MarkAsRead(conversationID string) {
	s.mu.Lock()
	conv, ok := s.conversations[conversationID]
	if ok {
		conv.UnreadCount = 0
		msgs := s.messages[conv.User.ID]
		for i := range msgs {
			if msgs[i].SenderID == conv.User.ID {
				msgs[i].IsRead = true
			}
		}
	}
	s.mu.Unlock()
	if ok {
		s.subs.notify()
	}
}

// Conversations returns every conversation, most recent activity first.
func (s *ChatStore) Conversations() []models.Conversation {
	s.mu.RLock()
	out := make([]models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, *conv)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastMessage.Time.Equal(out[j].LastMessage.Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastMessage.Time.After(out[j].LastMessage.Time)
	})
	return out
}

// UnreadTotal sums unread counts across conversations.
func (s *ChatStore) UnreadTotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, conv := range s.conversations {
		total += conv.UnreadCount
	}
	return total
}

// Subscribe registers fn to run after every state change.
func (s *ChatStore) Subscribe(fn func()) (unsubscribe func()) {
	return s.subs.add(fn)
}

// Reset drops every conversation and message. For tests.
func (s *ChatStore) Reset() {
	s.mu.Lock()
	s.conversations = make(map[string]*models.Conversation)
	s.byCounterpart = make(map[string]string)
	s.messages = make(map[string][]models.Message)
	s.mu.Unlock()
}
