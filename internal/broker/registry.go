// Package broker implements the UDP-to-TCP topic broker: the subscriber
// registry, the server event loop and the subscriber client.
package broker

import (
	"errors"

	"github.com/Albert24GG/pcom-assignments/internal/topic"
)

var (
	ErrAlreadyConnected = errors.New("broker: subscriber already connected")
	ErrNotConnected     = errors.New("broker: no subscriber connected on this session")
)

const noSession = -1

// subscriber is one arena slot. Identity outlives connections: on
// disconnect only the session binding is cleared, the topic set stays.
type subscriber struct {
	id      string
	session int
	topics  map[string]struct{}
}

func (s *subscriber) connected() bool { return s.session != noSession }

type patternIndex struct {
	pattern topic.Pattern
	ids     map[string]struct{}
}

// Registry tracks subscribers across three consistent indices: session
// number, identity and subscribed pattern. Sessions are opaque integers
// chosen by the caller (the server uses per-connection counters). The
// arena owns every subscriber; the indices hold ids only.
type Registry struct {
	bySession map[int]string
	byID      map[string]*subscriber
	byPattern map[string]*patternIndex
}

func NewRegistry() *Registry {
	return &Registry{
		bySession: make(map[int]string),
		byID:      make(map[string]*subscriber),
		byPattern: make(map[string]*patternIndex),
	}
}

// Connect binds a session to an identity. A known but disconnected id is
// revived with its retained subscriptions; a connected one fails.
func (r *Registry) Connect(session int, id string) error {
	if sub, ok := r.byID[id]; ok {
		if sub.connected() {
			return ErrAlreadyConnected
		}
		sub.session = session
		r.bySession[session] = id
		return nil
	}

	r.byID[id] = &subscriber{
		id:      id,
		session: session,
		topics:  make(map[string]struct{}),
	}
	r.bySession[session] = id
	return nil
}

// Disconnect unbinds a session. The identity and its subscriptions are
// retained for a later reconnect. Unknown sessions are a no-op.
func (r *Registry) Disconnect(session int) {
	id, ok := r.bySession[session]
	if !ok {
		return
	}
	r.byID[id].session = noSession
	delete(r.bySession, session)
}

// Connected reports whether a subscriber is bound to this session.
func (r *Registry) Connected(session int) bool {
	_, ok := r.bySession[session]
	return ok
}

// ID returns the identity bound to a session.
func (r *Registry) ID(session int) (string, bool) {
	id, ok := r.bySession[session]
	return id, ok
}

// Subscribe adds a pattern to the session's subscriber.
func (r *Registry) Subscribe(session int, pattern topic.Pattern) error {
	sub, err := r.bySessionInfo(session)
	if err != nil {
		return err
	}

	key := pattern.String()
	sub.topics[key] = struct{}{}

	idx, ok := r.byPattern[key]
	if !ok {
		idx = &patternIndex{pattern: pattern, ids: make(map[string]struct{})}
		r.byPattern[key] = idx
	}
	idx.ids[sub.id] = struct{}{}
	return nil
}

// Unsubscribe removes a pattern from the session's subscriber. Removing
// the last subscriber of a pattern drops the pattern from the index.
func (r *Registry) Unsubscribe(session int, pattern topic.Pattern) error {
	sub, err := r.bySessionInfo(session)
	if err != nil {
		return err
	}

	key := pattern.String()
	delete(sub.topics, key)

	if idx, ok := r.byPattern[key]; ok {
		delete(idx.ids, sub.id)
		if len(idx.ids) == 0 {
			delete(r.byPattern, key)
		}
	}
	return nil
}

// Topics returns the pattern strings the identity is subscribed to.
func (r *Registry) Topics(id string) []string {
	sub, ok := r.byID[id]
	if !ok {
		return nil
	}
	topics := make([]string, 0, len(sub.topics))
	for t := range sub.topics {
		topics = append(topics, t)
	}
	return topics
}

// Match returns the sessions of every connected subscriber whose
// patterns match the incoming concrete topic.
func (r *Registry) Match(incoming topic.Pattern) []int {
	seen := make(map[int]struct{})
	var sessions []int

	for _, idx := range r.byPattern {
		ok, err := idx.pattern.Matches(incoming)
		if err != nil || !ok {
			continue
		}
		for id := range idx.ids {
			sub := r.byID[id]
			if !sub.connected() {
				continue
			}
			if _, dup := seen[sub.session]; dup {
				continue
			}
			seen[sub.session] = struct{}{}
			sessions = append(sessions, sub.session)
		}
	}
	return sessions
}

func (r *Registry) bySessionInfo(session int) (*subscriber, error) {
	id, ok := r.bySession[session]
	if !ok {
		return nil, ErrNotConnected
	}
	return r.byID[id], nil
}
