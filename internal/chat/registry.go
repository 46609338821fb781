package chat

import (
	"sort"
	"sync"
)

type participant struct {
	id       string
	name     string
	role     Role
	session  Session
	online   bool
	unread   bool
	messages []Message
	joined   uint64 // first registration, orders the admin's list
	login    uint64 // latest registration, picks the on-duty admin
}

func (p *participant) view() ParticipantView {
	return ParticipantView{
		ID:      p.id,
		Name:    p.name,
		IsAdmin: p.role == RoleAdmin,
		Online:  p.online,
		Unread:  p.unread,
	}
}

func (p *participant) transcript() Transcript {
	msgs := make([]Message, len(p.messages))
	copy(msgs, p.messages)
	return Transcript{ParticipantView: p.view(), Messages: msgs}
}

// Registry is the in-memory presence table. Every method is atomic with
// respect to every other; returned values are copies.
type Registry struct {
	mu           sync.Mutex
	participants map[string]*participant
	seq          uint64
	focus        map[string]string // admin id -> selected customer id
}

func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]*participant),
		focus:        make(map[string]string),
	}
}

// Register brings a participant online on session s. A returning participant
// keeps its history and unread flag; the previous session is replaced. The
// returned transcript is the history as of the moment s became current, so
// any later append is routed to s directly.
func (r *Registry) Register(id, name string, role Role, s Session) Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	p, ok := r.participants[id]
	if !ok {
		p = &participant{id: id, joined: r.seq}
		r.participants[id] = p
	}
	p.name = name
	p.role = role
	p.session = s
	p.online = true
	p.login = r.seq
	return p.transcript()
}

// Deregister marks offline the participant whose current session is s. A
// session that was already replaced by a reconnect matches nothing.
func (r *Registry) Deregister(s Session) (ParticipantView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.bySession(s)
	if p == nil {
		return ParticipantView{}, false
	}
	p.online = false
	p.session = nil
	if p.role == RoleAdmin {
		delete(r.focus, p.id)
	}
	return p.view(), true
}

// Lookup returns the participant currently bound to s.
func (r *Registry) Lookup(s Session) (ParticipantView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.bySession(s)
	if p == nil {
		return ParticipantView{}, false
	}
	return p.view(), true
}

// FindAdmin returns the on-duty admin: the most recently registered admin
// that is still online.
func (r *Registry) FindAdmin() (ParticipantView, Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.onDutyAdmin()
	if p == nil {
		return ParticipantView{}, nil, false
	}
	return p.view(), p.session, true
}

// ListCustomers returns every known customer except excludingID, online or
// not, in order of first registration.
func (r *Registry) ListCustomers(excludingID string) []ParticipantView {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*participant, 0, len(r.participants))
	for _, p := range r.participants {
		if p.role == RoleCustomer && p.id != excludingID {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].joined < list[j].joined })

	views := make([]ParticipantView, len(list))
	for i, p := range list {
		views[i] = p.view()
	}
	return views
}

// Select records that adminID is viewing targetID, clears the target's
// unread flag and returns its transcript.
func (r *Registry) Select(adminID, targetID string) (Transcript, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[targetID]
	if !ok {
		return Transcript{}, false
	}
	p.unread = false
	r.focus[adminID] = targetID
	return p.transcript(), true
}

// AppendAdminMessage stores msg in targetID's history whether or not the
// customer is online. The session is nil when the customer is offline.
func (r *Registry) AppendAdminMessage(targetID string, msg Message) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[targetID]
	if !ok {
		return nil, false
	}
	p.messages = append(p.messages, msg)
	if !p.online {
		return nil, true
	}
	return p.session, true
}

// CustomerDelivery is the outcome of AppendCustomerMessage.
type CustomerDelivery struct {
	Admin        Session
	Sender       ParticipantView
	BecameUnread bool
}

// AppendCustomerMessage routes a customer message to the on-duty admin. With
// no admin online nothing is stored and ok is false. The admin lookup and
// the append happen in one critical section.
func (r *Registry) AppendCustomerMessage(senderID string, msg Message) (CustomerDelivery, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	admin := r.onDutyAdmin()
	sender, ok := r.participants[senderID]
	if admin == nil || !ok {
		return CustomerDelivery{}, false
	}

	sender.messages = append(sender.messages, msg)
	became := false
	if r.focus[admin.id] != senderID && !sender.unread {
		sender.unread = true
		became = true
	}
	return CustomerDelivery{Admin: admin.session, Sender: sender.view(), BecameUnread: became}, true
}

func (r *Registry) bySession(s Session) *participant {
	if s == nil {
		return nil
	}
	for _, p := range r.participants {
		if p.session == s {
			return p
		}
	}
	return nil
}

func (r *Registry) onDutyAdmin() *participant {
	var best *participant
	for _, p := range r.participants {
		if p.role == RoleAdmin && p.online && (best == nil || p.login > best.login) {
			best = p
		}
	}
	return best
}
