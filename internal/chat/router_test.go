package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	Event   string
	Payload any
}

type fakeSession struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func newFakeSession() *fakeSession {
	return &fakeSession{}
}

func (f *fakeSession) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, sentEvent{Event: event, Payload: payload})
	return nil
}

func (f *fakeSession) Sent() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeSession) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

var (
	alice = Identity{ID: "admin-1", Name: "Alice", IsAdmin: true}
	bob   = Identity{ID: "cust-1", Name: "Bob"}
	dan   = Identity{ID: "cust-2", Name: "Dan"}
)

// ============================================
// Login / Disconnect Tests
// ============================================

func TestRouter_Login_AdminReceivesCustomerList(t *testing.T) {
	router := NewRouter(NewRegistry())
	router.Login(newFakeSession(), bob)
	adminSession := newFakeSession()

	router.Login(adminSession, alice)

	sent := adminSession.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, EventListUsers, sent[0].Event)
	list := sent[0].Payload.([]ParticipantView)
	require.Len(t, list, 1)
	assert.Equal(t, "cust-1", list[0].ID)
	assert.True(t, list[0].Online)
}

func TestRouter_Login_CustomerNotifiesAdmin(t *testing.T) {
	router := NewRouter(NewRegistry())
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	adminSession.Reset()

	router.Login(newFakeSession(), bob)

	sent := adminSession.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, EventUpdateUser, sent[0].Event)
	assert.Equal(t, ParticipantView{ID: "cust-1", Name: "Bob", Online: true}, sent[0].Payload)
}

func TestRouter_Login_CustomerWithoutAdmin(t *testing.T) {
	router := NewRouter(NewRegistry())
	s := newFakeSession()

	router.Login(s, bob)

	assert.Empty(t, s.Sent())
}

func TestRouter_Disconnect_CustomerNotifiesAdmin(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)
	adminSession.Reset()

	router.Disconnect(bobSession)

	sent := adminSession.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, EventUpdateUser, sent[0].Event)
	assert.False(t, sent[0].Payload.(ParticipantView).Online)
}

func TestRouter_Disconnect_StaleSessionIsNoop(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	first := newFakeSession()
	router.Login(first, bob)
	router.Login(newFakeSession(), bob)
	adminSession.Reset()

	router.Disconnect(first)

	assert.Empty(t, adminSession.Sent())
	transcript, _ := reg.transcriptOf("cust-1")
	assert.True(t, transcript.Online)
}

// ============================================
// Message Tests
// ============================================

func TestRouter_Message_CustomerToAdmin(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)
	adminSession.Reset()

	router.Message(bobSession, "", "where is my order?")

	sent := adminSession.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, EventMessage, sent[0].Event)
	assert.Equal(t, Message{ID: "cust-1", Name: "Bob", Body: "where is my order?"}, sent[0].Payload)
	assert.Equal(t, EventUpdateUser, sent[1].Event)
	assert.True(t, sent[1].Payload.(ParticipantView).Unread)
	assert.Empty(t, bobSession.Sent())

	// already unread: no second updateUser
	adminSession.Reset()
	router.Message(bobSession, "", "hello?")
	sent = adminSession.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, EventMessage, sent[0].Event)

	transcript, _ := reg.transcriptOf("cust-1")
	assert.Len(t, transcript.Messages, 2)
}

func TestRouter_Message_SelectedCustomerStaysRead(t *testing.T) {
	router := NewRouter(NewRegistry())
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)
	router.SelectUser(adminSession, "cust-1")
	adminSession.Reset()

	router.Message(bobSession, "", "hi")

	sent := adminSession.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, EventMessage, sent[0].Event)
}

func TestRouter_Message_NoAdminOnline(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)
	danSession := newFakeSession()
	router.Login(danSession, dan)

	router.Message(bobSession, "", "anyone there?")

	sent := bobSession.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, EventMessage, sent[0].Event)
	assert.Equal(t, Message{Name: "Admin", Body: "Sorry. I am not online right now", IsAdmin: true}, sent[0].Payload)
	assert.Empty(t, danSession.Sent())

	transcript, _ := reg.transcriptOf("cust-1")
	assert.Empty(t, transcript.Messages)
}

func TestRouter_Message_AdminToCustomer(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)

	router.Message(adminSession, "cust-1", "it ships today")

	sent := bobSession.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, EventMessage, sent[0].Event)
	assert.Equal(t, Message{ID: "cust-1", Name: "Alice", Body: "it ships today", IsAdmin: true}, sent[0].Payload)
}

func TestRouter_Message_AdminToOfflineCustomerIsKept(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)
	router.Disconnect(bobSession)

	router.Message(adminSession, "cust-1", "it ships today")

	assert.Empty(t, bobSession.Sent())
	transcript, _ := reg.transcriptOf("cust-1")
	require.Len(t, transcript.Messages, 1)
	assert.True(t, transcript.Messages[0].IsAdmin)

	adminSession.Reset()
	router.SelectUser(adminSession, "cust-1")
	sent := adminSession.Sent()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].Payload.(Transcript).Messages, 1)
}

func TestRouter_Login_ReplaysHistoryOnReconnect(t *testing.T) {
	router := NewRouter(NewRegistry())
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)
	router.Message(bobSession, "", "where is my lamp?")
	router.Disconnect(bobSession)
	router.Message(adminSession, "cust-1", "it ships today")
	adminSession.Reset()

	reconnected := newFakeSession()
	router.Login(reconnected, bob)

	sent := reconnected.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, sentEvent{Event: EventMessage, Payload: Message{ID: "cust-1", Name: "Bob", Body: "where is my lamp?"}}, sent[0])
	assert.Equal(t, sentEvent{Event: EventMessage, Payload: Message{ID: "cust-1", Name: "Alice", Body: "it ships today", IsAdmin: true}}, sent[1])

	adminSent := adminSession.Sent()
	require.Len(t, adminSent, 1)
	assert.Equal(t, EventUpdateUser, adminSent[0].Event)
	assert.True(t, adminSent[0].Payload.(ParticipantView).Online)
}

func TestRouter_Login_FreshCustomerGetsNothing(t *testing.T) {
	router := NewRouter(NewRegistry())
	bobSession := newFakeSession()

	router.Login(bobSession, bob)

	assert.Empty(t, bobSession.Sent())
}

func TestRouter_Message_Ignored(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)
	adminSession.Reset()

	router.Message(bobSession, "", "   ")
	router.Message(newFakeSession(), "", "who am I")
	router.Message(adminSession, "nobody", "hello")

	assert.Empty(t, adminSession.Sent())
	assert.Empty(t, bobSession.Sent())
	transcript, _ := reg.transcriptOf("cust-1")
	assert.Empty(t, transcript.Messages)
}

func TestRouter_Message_SendFailureIsDropped(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	adminSession := newFakeSession()
	adminSession.err = errors.New("closed")
	router.Login(adminSession, alice)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)

	router.Message(bobSession, "", "hello")

	transcript, _ := reg.transcriptOf("cust-1")
	assert.Len(t, transcript.Messages, 1)
	assert.Empty(t, bobSession.Sent())
}

// ============================================
// SelectUser Tests
// ============================================

func TestRouter_SelectUser(t *testing.T) {
	router := NewRouter(NewRegistry())
	adminSession := newFakeSession()
	router.Login(adminSession, alice)
	bobSession := newFakeSession()
	router.Login(bobSession, bob)
	router.Message(bobSession, "", "hi")
	adminSession.Reset()

	router.SelectUser(adminSession, "cust-1")

	sent := adminSession.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, EventSelectUser, sent[0].Event)
	transcript := sent[0].Payload.(Transcript)
	assert.Equal(t, "cust-1", transcript.ID)
	assert.False(t, transcript.Unread)
	assert.Len(t, transcript.Messages, 1)
}

func TestRouter_SelectUser_CustomerIsIgnored(t *testing.T) {
	router := NewRouter(NewRegistry())
	bobSession := newFakeSession()
	router.Login(bobSession, bob)
	router.Login(newFakeSession(), dan)

	router.SelectUser(bobSession, "cust-2")

	assert.Empty(t, bobSession.Sent())
}

// ============================================
// Dispatch Tests
// ============================================

func TestRouter_Dispatch(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	adminSession := newFakeSession()
	bobSession := newFakeSession()

	require.NoError(t, router.Dispatch(adminSession, alice, EventLogin, nil))
	require.NoError(t, router.Dispatch(bobSession, bob, EventLogin, json.RawMessage(`{"_id":"spoofed","name":"Mallory"}`)))
	require.NoError(t, router.Dispatch(bobSession, bob, EventSendMessage, json.RawMessage(`{"body":"hello"}`)))
	require.NoError(t, router.Dispatch(adminSession, alice, EventUserSelected, json.RawMessage(`{"_id":"cust-1"}`)))
	require.NoError(t, router.Dispatch(adminSession, alice, EventSendMessage, json.RawMessage(`{"_id":"cust-1","body":"hi Bob"}`)))

	_, ok := reg.transcriptOf("spoofed")
	assert.False(t, ok)
	transcript, ok := reg.transcriptOf("cust-1")
	require.True(t, ok)
	assert.Equal(t, "Bob", transcript.Name)
	require.Len(t, transcript.Messages, 2)
	assert.False(t, transcript.Messages[0].IsAdmin)
	assert.True(t, transcript.Messages[1].IsAdmin)

	var events []string
	for _, e := range adminSession.Sent() {
		events = append(events, e.Event)
	}
	assert.Equal(t, []string{EventListUsers, EventUpdateUser, EventMessage, EventUpdateUser, EventSelectUser}, events)
}

func TestRouter_Dispatch_Errors(t *testing.T) {
	router := NewRouter(NewRegistry())
	s := newFakeSession()

	assert.Error(t, router.Dispatch(s, bob, EventSendMessage, json.RawMessage(`{`)))
	assert.Error(t, router.Dispatch(s, alice, EventUserSelected, json.RawMessage(`[]`)))
	assert.Error(t, router.Dispatch(s, bob, "onTyping", nil))
}
