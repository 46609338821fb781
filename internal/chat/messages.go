package chat

// Inbound socket events.
const (
	EventLogin        = "onLogin"
	EventUserSelected = "onUserSelected"
	EventSendMessage  = "onMessage"
)

// Outbound socket events.
const (
	EventListUsers  = "listUsers"
	EventUpdateUser = "updateUser"
	EventSelectUser = "selectUser"
	EventMessage    = "message"
)

const (
	fallbackName = "Admin"
	fallbackBody = "Sorry. I am not online right now"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is who a socket belongs to, taken from its auth token.
type Identity struct {
	ID      string
	Name    string
	IsAdmin bool
}

func (i Identity) role() Role {
	if i.IsAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// Message is one chat line. ID names the customer whose conversation it
// belongs to.
type Message struct {
	ID      string `json:"_id,omitempty"`
	Name    string `json:"name"`
	Body    string `json:"body"`
	IsAdmin bool   `json:"isAdmin"`
}

// ParticipantView is the participant as listed to the admin.
type ParticipantView struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
	Online  bool   `json:"online"`
	Unread  bool   `json:"unread"`
}

// Transcript is a participant with its message history.
type Transcript struct {
	ParticipantView
	Messages []Message `json:"messages"`
}

// Session is a live connection. Send must not block; a closed or stale
// session drops the event and may report an error.
type Session interface {
	Send(event string, payload any) error
}
