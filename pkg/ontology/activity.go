package ontology

import "time"

// ActivityKind classifies one audit-trail entry.
type ActivityKind string

const (
	ActivityEntityAdded         ActivityKind = "entity_added"
	ActivityEntityUpdated       ActivityKind = "entity_updated"
	ActivityEntityRemoved       ActivityKind = "entity_removed"
	ActivityRelationshipAdded   ActivityKind = "relationship_added"
	ActivityRelationshipRemoved ActivityKind = "relationship_removed"
	ActivityKnowledgeAdded      ActivityKind = "knowledge_added"
	ActivityKnowledgeRemoved    ActivityKind = "knowledge_removed"
)

const (
	ActivityStatusCompleted = "completed"
	ActivityStatusRejected  = "rejected"
)

// Activity is one audit record of a store mutation. Participants lists the
// entity IDs the mutation touched. Mutations the store rejects are recorded
// too, with Success false and an empty SubjectID.
type Activity struct {
	Kind         ActivityKind `json:"kind"`
	SubjectID    string       `json:"subject_id,omitempty"`
	Detail       string       `json:"detail,omitempty"`
	Participants []string     `json:"participants,omitempty"`
	Status       string       `json:"status"`
	Success      bool         `json:"success"`
	At           time.Time    `json:"at"`
}

// caller holds s.mu
func (s *Store) recordActivity(kind ActivityKind, subjectID, detail string, participants []string, success bool) {
	status := ActivityStatusCompleted
	if !success {
		status = ActivityStatusRejected
	}
	var copied []string
	if len(participants) > 0 {
		copied = make([]string, len(participants))
		copy(copied, participants)
	}
	s.activities = append(s.activities, Activity{
		Kind:         kind,
		SubjectID:    subjectID,
		Detail:       detail,
		Participants: copied,
		Status:       status,
		Success:      success,
		At:           s.now(),
	})
}

// Activities returns the most recent audit entries, newest last. A limit of
// zero or less returns everything.
func (s *Store) Activities(limit int) []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.activities) {
		limit = len(s.activities)
	}
	out := make([]Activity, limit)
	copy(out, s.activities[len(s.activities)-limit:])
	return out
}
