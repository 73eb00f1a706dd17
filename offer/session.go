package offer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dealdraft/dealdraft/docdiff"
)

// DefaultMaxRounds bounds the model rounds spent on one user turn.
const DefaultMaxRounds = 5

// Greeting opens every session transcript, mirroring the assistant's
// first message in the offer editor.
const Greeting = "Hello! I'm here to help you update your real estate offer. What changes would you like to make?"

// Dependencies wires collaborators into a session.
type Dependencies struct {
	Model  ChatModel
	Tool   ToolExecutor
	Events EventSink
	IDs    IDGenerator
}

// Config describes one conversational editing session over a single offer.
type Config struct {
	OfferID        string
	InitialContent string
	MaxRounds      int
}

// Session owns the running transcript and the single authoritative document
// revision for one open offer. The document is protected by the
// version-check-before-apply discipline, not by turn-level mutual exclusion:
// concurrent flows race freely and stale proposals are discarded.
type Session struct {
	offerID   string
	model     ChatModel
	tool      ToolExecutor
	events    EventSink
	ids       IDGenerator
	maxRounds int

	mu       sync.Mutex
	phase    Phase
	revision Revision
	messages []Message
	turnSeq  int64
}

// Snapshot is a deep-copied view of session state.
type Snapshot struct {
	OfferID  string    `json:"offer_id"`
	Phase    Phase     `json:"phase"`
	Turn     int64     `json:"turn"`
	Revision Revision  `json:"revision"`
	Messages []Message `json:"messages"`
}

func NewSession(cfg Config, deps Dependencies) (*Session, error) {
	if cfg.OfferID == "" {
		return nil, errors.New("new session: offer ID is required")
	}
	if deps.Model == nil {
		return nil, errors.New("new session: chat model is required")
	}
	if deps.Tool == nil {
		return nil, errors.New("new session: tool executor is required")
	}
	if deps.IDs == nil {
		return nil, errors.New("new session: ID generator is required")
	}
	if deps.Events == nil {
		deps.Events = noopEventSink{}
	}
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	s := &Session{
		offerID:   cfg.OfferID,
		model:     deps.Model,
		tool:      deps.Tool,
		events:    deps.Events,
		ids:       deps.IDs,
		maxRounds: maxRounds,
		revision: Revision{
			Version: 1,
			Text:    cfg.InitialContent,
		},
	}
	s.phase = PhaseIdle
	s.messages = []Message{{
		ID:      "greeting",
		Role:    RoleAssistant,
		Content: Greeting,
	}}
	return s, nil
}

// Revision returns the latest accepted document revision.
func (s *Session) Revision() Revision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		OfferID:  s.offerID,
		Phase:    s.phase,
		Turn:     s.turnSeq,
		Revision: s.revision,
		Messages: CloneMessages(s.messages),
	}
}

// PendingInvocations reports how many appended invocations are still pending.
func (s *Session) PendingInvocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.messages {
		for j := range s.messages[i].Invocations {
			if s.messages[i].Invocations[j].State == InvocationStatePending {
				count++
			}
		}
	}
	return count
}

// ApplyRevision applies a proposed full replacement iff the document is
// still at the proposal's base version. Stale proposals are discarded and
// published as revision_discarded events; discarding is observable but is
// not an error ("last applied version wins", not "last arrived wins").
func (s *Session) ApplyRevision(ctx context.Context, proposed ProposedRevision) (Revision, bool, error) {
	if ctx == nil {
		return Revision{}, false, ErrContextNil
	}

	s.mu.Lock()
	current := s.revision
	if proposed.BaseVersion != current.Version {
		turn := s.turnSeq
		s.mu.Unlock()
		_ = s.events.Publish(ctx, Event{
			OfferID:  s.offerID,
			Turn:     turn,
			Type:     EventTypeRevisionDiscarded,
			Revision: &current,
			Source:   proposed.Source,
			Description: fmt.Sprintf(
				"proposal computed against version %d, document is at version %d",
				proposed.BaseVersion,
				current.Version,
			),
		})
		return current, false, nil
	}

	next := Revision{
		Version: current.Version + 1,
		Text:    proposed.Text,
	}
	s.revision = next
	turn := s.turnSeq
	s.mu.Unlock()

	_ = s.events.Publish(ctx, Event{
		OfferID:     s.offerID,
		Turn:        turn,
		Type:        EventTypeDocumentUpdated,
		Revision:    &next,
		Source:      proposed.Source,
		Description: docdiff.Stats(current.Text, next.Text).String(),
	})
	return next, true, nil
}

// setPhase applies a phase transition if the table allows it. Superseded
// turns lose phase ownership; their late transitions are dropped.
func (s *Session) setPhase(to Phase) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validatePhaseTransition(s.phase, to); err != nil {
		return false
	}
	s.phase = to
	return true
}

func (s *Session) appendMessage(message Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, CloneMessage(message))
}

// resolveInvocation transitions the stored pending invocation to its result.
func (s *Session) resolveInvocation(invocationID string, result InvocationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		for j := range s.messages[i].Invocations {
			if s.messages[i].Invocations[j].ID == invocationID {
				return s.messages[i].Invocations[j].Resolve(result)
			}
		}
	}
	return fmt.Errorf("%w: invocation %q not found", ErrInvocationInvalid, invocationID)
}

func (s *Session) messagesSince(index int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index > len(s.messages) {
		return nil
	}
	return CloneMessages(s.messages[index:])
}

type noopEventSink struct{}

func (noopEventSink) Publish(context.Context, Event) error {
	return nil
}
