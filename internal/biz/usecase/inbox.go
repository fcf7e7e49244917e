package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
)

type inboxKey struct {
	channelID string
	userID    string
}

// Inbox routes platform inputs to the dialog flow waiting for them.
// Template choices are matched by flow id, free text by (channel, user).
type Inbox struct {
	mu     sync.Mutex
	byFlow map[string]*Mailbox
	byKey  map[inboxKey]*Mailbox
}

// NewInbox creates an empty inbox
func NewInbox() *Inbox {
	return &Inbox{
		byFlow: make(map[string]*Mailbox),
		byKey:  make(map[inboxKey]*Mailbox),
	}
}

// Mailbox receives the inputs of one flow
type Mailbox struct {
	inbox  *Inbox
	flowID string
	key    inboxKey

	ch      chan domain.DialogInput
	waiting bool
	kind    domain.InputKind
}

// Open registers a flow. Only one flow per (channel, user) may be open.
func (b *Inbox) Open(flowID, channelID, userID string) (*Mailbox, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := inboxKey{channelID: channelID, userID: userID}
	if _, busy := b.byKey[key]; busy {
		return nil, errors.Wrapf(domain.ErrFlowInProgress, "user %s in channel %s", userID, channelID)
	}

	m := &Mailbox{
		inbox:  b,
		flowID: flowID,
		key:    key,
		ch:     make(chan domain.DialogInput, 1),
	}
	b.byFlow[flowID] = m
	b.byKey[key] = m
	return m, nil
}

// Deliver hands an input to the flow currently waiting for it. It reports
// false when no flow is waiting for this kind of input from this user.
func (b *Inbox) Deliver(in domain.DialogInput) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	var m *Mailbox
	switch in.Kind {
	case domain.InputTemplateChoice:
		m = b.byFlow[in.FlowID]
		if m != nil && m.key.userID != in.UserID {
			return false
		}
	default:
		m = b.byKey[inboxKey{channelID: in.ChannelID, userID: in.UserID}]
	}
	if m == nil || !m.waiting || m.kind != in.Kind {
		return false
	}

	select {
	case m.ch <- in:
		m.waiting = false
		return true
	default:
		return false
	}
}

// Pending reports the number of open flows
func (b *Inbox) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byFlow)
}

// Next waits for the next input of kind, bounded by timeout
func (m *Mailbox) Next(ctx context.Context, kind domain.InputKind, timeout time.Duration) (domain.DialogInput, error) {
	m.inbox.mu.Lock()
	select {
	case <-m.ch: // stale input that raced a previous timeout
	default:
	}
	m.waiting = true
	m.kind = kind
	m.inbox.mu.Unlock()

	defer func() {
		m.inbox.mu.Lock()
		m.waiting = false
		m.inbox.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case in := <-m.ch:
		return in, nil
	case <-timer.C:
		return domain.DialogInput{}, errors.Wrapf(domain.ErrDialogTimeout, "no input within %v", timeout)
	case <-ctx.Done():
		return domain.DialogInput{}, ctx.Err()
	}
}

// Close unregisters the flow
func (m *Mailbox) Close() {
	b := m.inbox
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.byFlow[m.flowID] == m {
		delete(b.byFlow, m.flowID)
	}
	if b.byKey[m.key] == m {
		delete(b.byKey, m.key)
	}
}
