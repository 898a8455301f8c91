package voicemesh

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	mu        sync.Mutex
	remoteID  string
	initiated bool
	enabled   bool
	closed    bool
	signals   []Signal
	failNext  error
}

func (p *fakePeer) Initiate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initiated = true
	return nil
}

func (p *fakePeer) HandleSignal(sig Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return err
	}
	p.signals = append(p.signals, sig)
	return nil
}

func (p *fakePeer) SetAudioEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeSender struct {
	mu      sync.Mutex
	signals map[string][]json.RawMessage
}

func (s *fakeSender) SendSignal(targetID string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signals == nil {
		s.signals = make(map[string][]json.RawMessage)
	}
	s.signals[targetID] = append(s.signals[targetID], payload)
	return nil
}

type peerLog struct {
	mu    sync.Mutex
	peers map[string]*fakePeer
}

func (l *peerLog) factory(remoteID string, send func(Signal) error) (Peer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.peers == nil {
		l.peers = make(map[string]*fakePeer)
	}
	p := &fakePeer{remoteID: remoteID}
	l.peers[remoteID] = p
	return p, nil
}

func (l *peerLog) get(remoteID string) *fakePeer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peers[remoteID]
}

func TestShouldInitiate(t *testing.T) {
	assert.True(t, ShouldInitiate("b2", "a1"), "the greater id initiates")
	assert.False(t, ShouldInitiate("a1", "b2"))
	assert.False(t, ShouldInitiate("a1", "a1"))
}

func TestEnableVoiceInitiatesTowardLesserIDs(t *testing.T) {
	log := &peerLog{}
	m := New("b2", &fakeSender{}, WithPeerFactory(log.factory))

	m.EnableVoice([]string{"a1", "b2", "c3"})

	// exactly one side of each pair initiates
	require.NotNil(t, log.get("a1"))
	assert.True(t, log.get("a1").initiated, "b2 > a1, we open the offer")
	require.NotNil(t, log.get("c3"))
	assert.False(t, log.get("c3").initiated, "b2 < c3, c3 opens the offer")
	assert.Nil(t, log.get("b2"), "no link to ourselves")
}

func TestHandleMemberJoined(t *testing.T) {
	log := &peerLog{}
	m := New("b2", &fakeSender{}, WithPeerFactory(log.factory))

	m.HandleMemberJoined("a1")
	require.NotNil(t, log.get("a1"))
	assert.True(t, log.get("a1").initiated)

	m.HandleMemberJoined("c3")
	require.NotNil(t, log.get("c3"))
	assert.False(t, log.get("c3").initiated, "we wait for the joiner's offer")
}

func TestHandleSignalCreatesPeerReactively(t *testing.T) {
	log := &peerLog{}
	m := New("a1", &fakeSender{}, WithPeerFactory(log.factory))

	offer, err := json.Marshal(Signal{Kind: SignalOffer, SDP: json.RawMessage(`{"type":"offer","sdp":"v=0"}`)})
	require.NoError(t, err)
	require.NoError(t, m.HandleSignal("b2", offer))

	p := log.get("b2")
	require.NotNil(t, p, "an incoming offer must create the peer")
	assert.False(t, p.initiated, "the remote side already initiated")
	require.Len(t, p.signals, 1)
	assert.Equal(t, SignalOffer, p.signals[0].Kind)
}

func TestHandleSignalFailureClosesOnlyThatLink(t *testing.T) {
	log := &peerLog{}
	m := New("z9", &fakeSender{}, WithPeerFactory(log.factory))
	m.EnableVoice([]string{"a1", "b2"})

	log.get("a1").failNext = assert.AnError

	candidate, err := json.Marshal(Signal{Kind: SignalCandidate, Candidate: json.RawMessage(`{"candidate":"c"}`)})
	require.NoError(t, err)
	require.NoError(t, m.HandleSignal("a1", candidate), "a broken link is swallowed, not escalated")

	assert.True(t, log.get("a1").closed)
	assert.False(t, log.get("b2").closed, "other links stay up")
}

func TestMemberLeftClosesPeer(t *testing.T) {
	log := &peerLog{}
	m := New("z9", &fakeSender{}, WithPeerFactory(log.factory))
	m.EnableVoice([]string{"a1"})

	m.HandleMemberLeft("a1")
	assert.True(t, log.get("a1").closed)

	m.HandleMemberLeft("a1") // second time is a no-op
}

func TestMuteGatesAudioWithoutTeardown(t *testing.T) {
	log := &peerLog{}
	m := New("z9", &fakeSender{}, WithPeerFactory(log.factory))
	m.EnableVoice([]string{"a1", "b2"})

	m.SetMuted(true)
	assert.True(t, m.Muted())
	for _, id := range []string{"a1", "b2"} {
		assert.False(t, log.get(id).enabled, "mute must disable audio on every link")
		assert.False(t, log.get(id).closed, "mute must not tear the link down")
	}

	// peers created while muted start gated
	m.HandleMemberJoined("c3")
	assert.False(t, log.get("c3").enabled)

	m.SetMuted(false)
	for _, id := range []string{"a1", "b2", "c3"} {
		assert.True(t, log.get(id).enabled)
	}
}

func TestHandleMutedByHost(t *testing.T) {
	log := &peerLog{}
	consent := false
	m := New("z9", &fakeSender{},
		WithPeerFactory(log.factory),
		WithConsentPrompt(func() bool { return consent }),
	)
	m.EnableVoice([]string{"a1"})

	// forced mute applies unconditionally
	changed := m.HandleMutedByHost(true)
	assert.True(t, changed)
	assert.True(t, m.Muted())
	assert.False(t, log.get("a1").enabled)

	// unmute is only a request, declined consent keeps us muted
	changed = m.HandleMutedByHost(false)
	assert.False(t, changed)
	assert.True(t, m.Muted(), "declined unmute request must change nothing")

	consent = true
	changed = m.HandleMutedByHost(false)
	assert.True(t, changed)
	assert.False(t, m.Muted())
	assert.True(t, log.get("a1").enabled)
}

func TestHandleMutedByHostWithoutConsentPrompt(t *testing.T) {
	m := New("z9", &fakeSender{}, WithPeerFactory((&peerLog{}).factory))
	m.SetMuted(true)

	assert.False(t, m.HandleMutedByHost(false), "without a prompt every unmute request is declined")
	assert.True(t, m.Muted())
}

func TestOutboundSignalReachesSender(t *testing.T) {
	sender := &fakeSender{}
	var capturedSend func(Signal) error
	factory := func(remoteID string, send func(Signal) error) (Peer, error) {
		capturedSend = send
		return &fakePeer{remoteID: remoteID}, nil
	}

	m := New("b2", sender, WithPeerFactory(factory))
	m.EnableVoice([]string{"a1"})

	require.NotNil(t, capturedSend)
	require.NoError(t, capturedSend(Signal{Kind: SignalAnswer, SDP: json.RawMessage(`{"type":"answer","sdp":"v=0"}`)}))

	require.Len(t, sender.signals["a1"], 1)
	var sig Signal
	require.NoError(t, json.Unmarshal(sender.signals["a1"][0], &sig))
	assert.Equal(t, SignalAnswer, sig.Kind)
}

func TestCloseTearsDownEveryPeer(t *testing.T) {
	log := &peerLog{}
	m := New("z9", &fakeSender{}, WithPeerFactory(log.factory))
	m.EnableVoice([]string{"a1", "b2", "c3"})

	m.Close()
	for _, id := range []string{"a1", "b2", "c3"} {
		assert.True(t, log.get(id).closed)
	}
}
