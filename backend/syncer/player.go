package syncer

import (
	"errors"
	"sync"
	"time"
)

var ErrNoVideo = errors.New("no video loaded")

type (
	// Player is the page video element as seen by the controller.
	Player interface {
		Position() float64
		Seek(pos float64)
		Play() error
		Pause()
		Paused() bool
		VideoID() string
	}

	// PlayerListener receives native player events. Controller implements it.
	PlayerListener interface {
		LocalPlay()
		LocalPause()
		LocalSeeked()
		LocalVideoLoaded()
	}
)

// VirtualPlayer is a clock driven player. Like a browser video element it fires
// native events for every state change, no matter who caused it.
type VirtualPlayer struct {
	mx       *sync.Mutex
	now      func() time.Time
	listener PlayerListener

	videoID string
	base    float64
	anchor  time.Time
	playing bool
}

func NewVirtualPlayer(now func() time.Time) *VirtualPlayer {
	if now == nil {
		now = time.Now
	}
	return &VirtualPlayer{
		mx:  &sync.Mutex{},
		now: now,
	}
}

// SetListener attaches native event listener. Passing nil detaches it.
func (p *VirtualPlayer) SetListener(l PlayerListener) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.listener = l
}

// Load replaces current video and positions it at pos in paused state.
func (p *VirtualPlayer) Load(videoID string, pos float64) {
	p.mx.Lock()
	p.videoID = videoID
	p.base = clampPosition(pos)
	p.anchor = p.now()
	p.playing = false
	l := p.listener
	p.mx.Unlock()

	if l != nil {
		l.LocalVideoLoaded()
	}
}

func (p *VirtualPlayer) VideoID() string {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.videoID
}

func (p *VirtualPlayer) Position() float64 {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.position()
}

func (p *VirtualPlayer) position() float64 {
	if !p.playing {
		return p.base
	}
	return p.base + p.now().Sub(p.anchor).Seconds()
}

func (p *VirtualPlayer) Paused() bool {
	p.mx.Lock()
	defer p.mx.Unlock()
	return !p.playing
}

func (p *VirtualPlayer) Seek(pos float64) {
	p.mx.Lock()
	p.base = clampPosition(pos)
	p.anchor = p.now()
	l := p.listener
	p.mx.Unlock()

	if l != nil {
		l.LocalSeeked()
	}
}

func (p *VirtualPlayer) Play() error {
	p.mx.Lock()
	if p.videoID == "" {
		p.mx.Unlock()
		return ErrNoVideo
	}
	if p.playing {
		p.mx.Unlock()
		return nil
	}
	p.anchor = p.now()
	p.playing = true
	l := p.listener
	p.mx.Unlock()

	if l != nil {
		l.LocalPlay()
	}
	return nil
}

func (p *VirtualPlayer) Pause() {
	p.mx.Lock()
	if !p.playing {
		p.mx.Unlock()
		return
	}
	p.base = p.position()
	p.anchor = p.now()
	p.playing = false
	l := p.listener
	p.mx.Unlock()

	if l != nil {
		l.LocalPause()
	}
}

func clampPosition(pos float64) float64 {
	if pos < 0 {
		return 0
	}
	return pos
}
