package classify

import "strings"

// ContactSet is the known-senders list. Senders outside it contribute
// the "not in contacts" behavioral signal consumed by the scorer.
type ContactSet struct {
	known map[string]struct{}
}

func NewContactSet(values []string) *ContactSet {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		id := normalizeSender(v)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return &ContactSet{known: set}
}

func (c *ContactSet) Known(sender string) bool {
	if c == nil {
		return false
	}
	id := normalizeSender(sender)
	if id == "" {
		return false
	}
	_, ok := c.known[id]
	return ok
}

// BehavioralAnalysis renders the sender's contact-list standing as the
// free-text behavioral input the scorer expects.
func (c *ContactSet) BehavioralAnalysis(sender string) string {
	if c.Known(sender) {
		return "sender in contacts"
	}
	return "sender not in contacts"
}

func normalizeSender(sender string) string {
	return strings.ToLower(strings.TrimSpace(sender))
}
