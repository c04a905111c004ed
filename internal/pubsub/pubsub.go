// Package pubsub implements channel and pattern subscription fan-out for
// SUBSCRIBE/PSUBSCRIBE/PUBLISH (§4.H). Delivery is push-based: PUBLISH walks
// the matching subscriber set and hands each one the channel and payload
// directly (the subscriber encodes its own frame), the same "no intermediate queue" style the teacher uses for its
// process log tailers.
package pubsub

import (
	"sync"
)

// Subscriber is anything that can receive a pushed pub/sub frame —
// command.ClientState implements this.
type Subscriber interface {
	DeliverMessage(channel string, payload []byte)
	DeliverPatternMessage(pattern, channel string, payload []byte)
	SubscriberID() uint64
}

// Registry tracks channel and pattern subscriptions across all connections.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[uint64]Subscriber
	patterns map[string]map[uint64]Subscriber
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[uint64]Subscriber),
		patterns: make(map[string]map[uint64]Subscriber),
	}
}

func (r *Registry) Subscribe(channel string, s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.channels[channel]
	if !ok {
		set = make(map[uint64]Subscriber)
		r.channels[channel] = set
	}
	set[s.SubscriberID()] = s
}

func (r *Registry) Unsubscribe(channel string, s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.channels[channel]; ok {
		delete(set, s.SubscriberID())
		if len(set) == 0 {
			delete(r.channels, channel)
		}
	}
}

func (r *Registry) PSubscribe(pattern string, s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.patterns[pattern]
	if !ok {
		set = make(map[uint64]Subscriber)
		r.patterns[pattern] = set
	}
	set[s.SubscriberID()] = s
}

func (r *Registry) PUnsubscribe(pattern string, s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.patterns[pattern]; ok {
		delete(set, s.SubscriberID())
		if len(set) == 0 {
			delete(r.patterns, pattern)
		}
	}
}

// UnsubscribeAll removes s from every channel and pattern, used on
// disconnect.
func (r *Registry) UnsubscribeAll(s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch, set := range r.channels {
		delete(set, s.SubscriberID())
		if len(set) == 0 {
			delete(r.channels, ch)
		}
	}
	for pat, set := range r.patterns {
		delete(set, s.SubscriberID())
		if len(set) == 0 {
			delete(r.patterns, pat)
		}
	}
}

// Publish delivers payload to every direct channel subscriber and every
// pattern subscriber whose pattern matches channel. Returns the total
// number of deliveries.
func (r *Registry) Publish(channel string, payload []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.channels[channel] {
		s.DeliverMessage(channel, payload)
		n++
	}
	for pat, set := range r.patterns {
		if !globMatch(pat, channel) {
			continue
		}
		for _, s := range set {
			s.DeliverPatternMessage(pat, channel, payload)
			n++
		}
	}
	return n
}

func globMatch(pattern, s string) bool {
	var pi, si int
	starIdx := -1
	match := 0
	pat, str := []byte(pattern), []byte(s)
	for si < len(str) {
		switch {
		case pi < len(pat) && (pat[pi] == '?' || pat[pi] == str[si]):
			pi++
			si++
		case pi < len(pat) && pat[pi] == '*':
			starIdx = pi
			match = si
			pi++
		case starIdx != -1:
			pi = starIdx + 1
			match++
			si = match
		default:
			return false
		}
	}
	for pi < len(pat) && pat[pi] == '*' {
		pi++
	}
	return pi == len(pat)
}
