package chat

import (
	"sort"
	"sync"

	"subzero/models"

	"golang.org/x/time/rate"
)

// State is the lifecycle position of one connection.
type State int

const (
	StateConnecting State = iota
	StateJoined
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateJoined:
		return "JOINED"
	case StateActive:
		return "ACTIVE"
	case StateDisconnected:
		return "DISCONNECTED"
	}
	return "UNKNOWN"
}

// Member is one live connection and the session-scoped user behind it.
type Member struct {
	ID      string
	conn    Conn
	limiter *rate.Limiter

	mu    sync.RWMutex
	state State
	user  models.ChatUser
}

func (m *Member) User() models.ChatUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

func (m *Member) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Member) joined() bool {
	s := m.State()
	return s == StateJoined || s == StateActive
}

func (m *Member) join(restricted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateJoined
	m.user.IsRestricted = restricted
}

func (m *Member) markActive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateJoined {
		m.state = StateActive
	}
}

// disconnect moves the member to DISCONNECTED and returns the state it left.
func (m *Member) disconnect() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.state
	m.state = StateDisconnected
	return prev
}

func (m *Member) setRestricted(restricted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user.IsRestricted = restricted
}

// Send writes pre-encoded data to the member's connection.
func (m *Member) Send(data []byte) error {
	return m.conn.Send(data)
}

// Registry tracks the joined members of this process.
type Registry struct {
	mu      sync.RWMutex
	members map[string]*Member
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[string]*Member)}
}

// Add registers m and returns the new member count.
func (r *Registry) Add(m *Member) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.ID] = m
	return len(r.members)
}

// Remove unregisters the connection. Removing an absent connection is a no-op.
func (r *Registry) Remove(id string) (removed bool, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; ok {
		delete(r.members, id)
		removed = true
	}
	return removed, len(r.members)
}

func (r *Registry) Get(id string) (*Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	return m, ok
}

// Members returns a snapshot of all joined members.
func (r *Registry) Members() []*Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out
}

// ByUser returns every connection held by userID.
func (r *Registry) ByUser(userID string) []*Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Member
	for _, m := range r.members {
		if m.User().UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

// Users lists the public profiles of all members except the given connection, ordered by username.
func (r *Registry) Users(excludeID string) []models.ChatUser {
	members := r.Members()
	users := make([]models.ChatUser, 0, len(members))
	for _, m := range members {
		if m.ID == excludeID {
			continue
		}
		users = append(users, m.User())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].UserID < users[j].UserID
	})
	return users
}

// SetRestricted updates every connection of userID and returns how many were changed.
func (r *Registry) SetRestricted(userID string, restricted bool) int {
	members := r.ByUser(userID)
	for _, m := range members {
		m.setRestricted(restricted)
	}
	return len(members)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
