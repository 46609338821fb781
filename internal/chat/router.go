package chat

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Router applies socket events to the registry and fans the results out to
// sessions. Sends happen after the registry call returns, never under its
// lock, and a failed send is dropped.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Login registers the socket's owner. An admin receives the customer list.
// A customer gets its stored history replayed, including admin lines sent
// while it was offline, and the on-duty admin is told it came online.
func (r *Router) Login(s Session, who Identity) {
	transcript := r.registry.Register(who.ID, who.Name, who.role(), s)
	log.Printf("[Chat] %s %s (%s) online", who.role(), who.Name, who.ID)

	if who.IsAdmin {
		deliver(s, EventListUsers, r.registry.ListCustomers(who.ID))
		return
	}
	for _, msg := range transcript.Messages {
		deliver(s, EventMessage, msg)
	}
	if _, admin, ok := r.registry.FindAdmin(); ok {
		deliver(admin, EventUpdateUser, transcript.ParticipantView)
	}
}

// SelectUser opens a customer's conversation for the admin on s.
func (r *Router) SelectUser(s Session, targetID string) {
	admin, ok := r.registry.Lookup(s)
	if !ok || !admin.IsAdmin {
		log.Printf("[Chat] Ignoring %s from a session that is not an admin", EventUserSelected)
		return
	}
	transcript, ok := r.registry.Select(admin.ID, targetID)
	if !ok {
		return
	}
	deliver(s, EventSelectUser, transcript)
}

// Message routes a chat line. Admin lines go to the addressed customer and
// are kept even if the customer is offline. Customer lines go to the
// on-duty admin; with none online the sender alone gets a fallback reply
// that is not stored.
func (r *Router) Message(s Session, targetID, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	sender, ok := r.registry.Lookup(s)
	if !ok {
		log.Printf("[Chat] Ignoring %s from an unregistered session", EventSendMessage)
		return
	}

	if sender.IsAdmin {
		msg := Message{ID: targetID, Name: sender.Name, Body: body, IsAdmin: true}
		if target, ok := r.registry.AppendAdminMessage(targetID, msg); ok && target != nil {
			deliver(target, EventMessage, msg)
		}
		return
	}

	msg := Message{ID: sender.ID, Name: sender.Name, Body: body}
	d, ok := r.registry.AppendCustomerMessage(sender.ID, msg)
	if !ok {
		deliver(s, EventMessage, Message{Name: fallbackName, Body: fallbackBody, IsAdmin: true})
		return
	}
	deliver(d.Admin, EventMessage, msg)
	if d.BecameUnread {
		deliver(d.Admin, EventUpdateUser, d.Sender)
	}
}

// Disconnect takes the socket's owner offline, keeping its history.
func (r *Router) Disconnect(s Session) {
	view, ok := r.registry.Deregister(s)
	if !ok {
		return
	}
	log.Printf("[Chat] %s (%s) offline", view.Name, view.ID)
	if view.IsAdmin {
		return
	}
	if _, admin, ok := r.registry.FindAdmin(); ok {
		deliver(admin, EventUpdateUser, view)
	}
}

type selectPayload struct {
	ID string `json:"_id"`
}

type messagePayload struct {
	ID   string `json:"_id"`
	Body string `json:"body"`
}

// Dispatch decodes one inbound socket event. Identity always comes from
// who, never from the payload.
func (r *Router) Dispatch(s Session, who Identity, event string, data json.RawMessage) error {
	switch event {
	case EventLogin:
		r.Login(s, who)
	case EventUserSelected:
		var p selectPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		r.SelectUser(s, p.ID)
	case EventSendMessage:
		var p messagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		r.Message(s, p.ID, p.Body)
	default:
		return fmt.Errorf("unknown event %q", event)
	}
	return nil
}

func deliver(s Session, event string, payload any) {
	if s == nil {
		return
	}
	_ = s.Send(event, payload)
}
