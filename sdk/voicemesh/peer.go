package voicemesh

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

var defaultRTCConfig = webrtc.Configuration{
	ICEServers: []webrtc.ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
	},
}

// pionPeer is the default Peer implementation, one RTCPeerConnection carrying
// a single opus track each way.
type pionPeer struct {
	pc    *webrtc.PeerConnection
	track *webrtc.TrackLocalStaticSample
	send  func(Signal) error

	enabled atomic.Bool

	mu        sync.Mutex
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

func newPionPeer(remoteID string, send func(Signal) error) (Peer, error) {
	pc, err := webrtc.NewPeerConnection(defaultRTCConfig)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"voice-"+remoteID,
	)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("new audio track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		return nil, fmt.Errorf("add audio track: %w", err)
	}

	p := &pionPeer{
		pc:    pc,
		track: track,
		send:  send,
	}
	p.enabled.Store(true)

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		b, err := json.Marshal(init)
		if err != nil {
			return
		}
		p.send(Signal{Kind: SignalCandidate, Candidate: b})
	})

	return p, nil
}

func (p *pionPeer) Initiate() error {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	return p.sendDescription(SignalOffer, offer)
}

func (p *pionPeer) HandleSignal(sig Signal) error {
	switch sig.Kind {
	case SignalOffer:
		var offer webrtc.SessionDescription
		if err := json.Unmarshal(sig.SDP, &offer); err != nil {
			return fmt.Errorf("decode offer: %w", err)
		}
		if err := p.setRemoteDescription(offer); err != nil {
			return err
		}

		answer, err := p.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := p.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local description: %w", err)
		}

		return p.sendDescription(SignalAnswer, answer)

	case SignalAnswer:
		var answer webrtc.SessionDescription
		if err := json.Unmarshal(sig.SDP, &answer); err != nil {
			return fmt.Errorf("decode answer: %w", err)
		}
		return p.setRemoteDescription(answer)

	case SignalCandidate:
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(sig.Candidate, &candidate); err != nil {
			return fmt.Errorf("decode candidate: %w", err)
		}
		return p.addCandidate(candidate)

	default:
		return fmt.Errorf("unknown signal kind %q", sig.Kind)
	}
}

func (p *pionPeer) SetAudioEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// WriteAudio pushes one captured audio sample to the remote member. Samples
// are dropped silently while muted, the link itself stays up.
func (p *pionPeer) WriteAudio(sample media.Sample) error {
	if !p.enabled.Load() {
		return nil
	}
	return p.track.WriteSample(sample)
}

func (p *pionPeer) Close() error {
	return p.pc.Close()
}

func (p *pionPeer) sendDescription(kind string, desc webrtc.SessionDescription) error {
	b, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	return p.send(Signal{Kind: kind, SDP: b})
}

// setRemoteDescription applies the description and flushes candidates that
// arrived before it. AddICECandidate rejects candidates until a remote
// description is set.
func (p *pionPeer) setRemoteDescription(desc webrtc.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.remoteSet = true
	p.mu.Unlock()

	for _, candidate := range pending {
		if err := p.pc.AddICECandidate(candidate); err != nil {
			return fmt.Errorf("add buffered candidate: %w", err)
		}
	}

	return nil
}

func (p *pionPeer) addCandidate(candidate webrtc.ICECandidateInit) error {
	p.mu.Lock()
	if !p.remoteSet {
		p.pending = append(p.pending, candidate)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.pc.AddICECandidate(candidate); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}
