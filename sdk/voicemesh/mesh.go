// Package voicemesh keeps a full mesh of voice links with the other members
// of a room. The server only relays signaling; every peer connection is
// negotiated and owned here, on the client.
package voicemesh

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Signal is the envelope exchanged through the server's voice.signal relay.
// The server treats it as opaque bytes.
type Signal struct {
	Kind      string          `json:"kind"` // offer, answer or candidate
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
)

// Peer is a single voice link to one remote member.
type Peer interface {
	// Initiate starts negotiation by sending an offer.
	Initiate() error
	HandleSignal(sig Signal) error
	// SetAudioEnabled gates outbound audio without tearing the link down.
	SetAudioEnabled(enabled bool)
	Close() error
}

// PeerFactory builds a peer for a remote member. send delivers a signal to
// that member through the room connection.
type PeerFactory func(remoteID string, send func(Signal) error) (Peer, error)

// SignalSender is the half of the room client the mesh needs.
type SignalSender interface {
	SendSignal(targetID string, payload json.RawMessage) error
}

// ShouldInitiate reports whether the local member opens the offer toward the
// remote one. Exactly one side of every pair initiates: the member whose id
// compares lexicographically greater.
func ShouldInitiate(localID, remoteID string) bool {
	return localID > remoteID
}

type Mesh struct {
	localID string
	sender  SignalSender
	newPeer PeerFactory
	consent func() bool
	logger  *slog.Logger

	mu    sync.Mutex
	peers map[string]Peer
	muted bool
}

type Option func(*Mesh)

func WithPeerFactory(factory PeerFactory) Option {
	return func(m *Mesh) {
		m.newPeer = factory
	}
}

// WithConsentPrompt sets the callback asked when the host requests an unmute.
// Without one every unmute request is declined.
func WithConsentPrompt(consent func() bool) Option {
	return func(m *Mesh) {
		m.consent = consent
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Mesh) {
		m.logger = logger
	}
}

func New(localID string, sender SignalSender, opts ...Option) *Mesh {
	m := &Mesh{
		localID: localID,
		sender:  sender,
		newPeer: newPionPeer,
		logger:  slog.Default(),
		peers:   make(map[string]Peer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnableVoice establishes links to the given members, typically the member
// list from the room snapshot. The local member is skipped.
func (m *Mesh) EnableVoice(memberIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range memberIDs {
		if id == m.localID {
			continue
		}
		m.ensurePeerLocked(id, ShouldInitiate(m.localID, id))
	}
}

// HandleMemberJoined opens a link to a new member if the tie-break puts the
// offer on our side. Otherwise the joiner's offer arrives via HandleSignal.
func (m *Mesh) HandleMemberJoined(memberID string) {
	if memberID == m.localID {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensurePeerLocked(memberID, ShouldInitiate(m.localID, memberID))
}

func (m *Mesh) HandleMemberLeft(memberID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closePeerLocked(memberID)
}

// HandleSignal routes a relayed signal to the matching peer, creating one
// reactively when the remote side initiated.
func (m *Mesh) HandleSignal(fromID string, payload json.RawMessage) error {
	var sig Signal
	if err := json.Unmarshal(payload, &sig); err != nil {
		return fmt.Errorf("decode signal from %s: %w", fromID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.peers[fromID]
	if !ok {
		p = m.ensurePeerLocked(fromID, false)
		if p == nil {
			return nil
		}
	}

	if err := p.HandleSignal(sig); err != nil {
		// a broken link never takes the room connection down with it
		m.logger.Error("voice link failed", "peer_id", fromID, "error", err)
		m.closePeerLocked(fromID)
	}

	return nil
}

// SetMuted flips the local mute state and gates audio on every link.
func (m *Mesh) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setMutedLocked(muted)
}

func (m *Mesh) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.muted
}

// HandleMutedByHost applies a voice.muted-by-host event. A forced mute takes
// effect unconditionally. An unmute request only takes effect with the local
// member's consent. Reports whether the local state changed.
func (m *Mesh) HandleMutedByHost(muted bool) bool {
	if muted {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.muted {
			return false
		}
		m.setMutedLocked(true)
		return true
	}

	// consent runs outside the lock, it may block on the user
	if m.consent == nil || !m.consent() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.muted {
		return false
	}
	m.setMutedLocked(false)
	return true
}

func (m *Mesh) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.peers {
		m.closePeerLocked(id)
	}
}

func (m *Mesh) ensurePeerLocked(memberID string, initiate bool) Peer {
	if p, ok := m.peers[memberID]; ok {
		return p
	}

	p, err := m.newPeer(memberID, m.sendTo(memberID))
	if err != nil {
		m.logger.Error("create voice link", "peer_id", memberID, "error", err)
		return nil
	}

	p.SetAudioEnabled(!m.muted)
	m.peers[memberID] = p

	if initiate {
		if err := p.Initiate(); err != nil {
			m.logger.Error("initiate voice link", "peer_id", memberID, "error", err)
			m.closePeerLocked(memberID)
			return nil
		}
	}

	return p
}

func (m *Mesh) closePeerLocked(memberID string) {
	p, ok := m.peers[memberID]
	if !ok {
		return
	}

	delete(m.peers, memberID)
	if err := p.Close(); err != nil {
		m.logger.Debug("close voice link", "peer_id", memberID, "error", err)
	}
}

func (m *Mesh) setMutedLocked(muted bool) {
	m.muted = muted
	for _, p := range m.peers {
		p.SetAudioEnabled(!muted)
	}
}

func (m *Mesh) sendTo(memberID string) func(Signal) error {
	return func(sig Signal) error {
		b, err := json.Marshal(sig)
		if err != nil {
			return fmt.Errorf("marshal signal: %w", err)
		}
		return m.sender.SendSignal(memberID, b)
	}
}
