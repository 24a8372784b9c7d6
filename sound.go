package main

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const cueSampleRate = beep.SampleRate(44100)

// Cues plays short feedback sounds. Calls never block the frame loop.
type Cues interface {
	Shot()
	Hit()
	Close()
}

type nopCues struct{}

func (nopCues) Shot()  {}
func (nopCues) Hit()   {}
func (nopCues) Close() {}

// SpeakerCues plays cues through the system audio device
type SpeakerCues struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	closed bool
}

// NewCues opens the speaker. When no audio device is usable the returned
// Cues is silent and err says why; callers treat that as non-fatal.
func NewCues() (Cues, error) {
	if err := speaker.Init(cueSampleRate, cueSampleRate.N(50*time.Millisecond)); err != nil {
		return nopCues{}, err
	}
	c := &SpeakerCues{mixer: &beep.Mixer{}}
	speaker.Play(c.mixer)
	return c, nil
}

func (c *SpeakerCues) play(s beep.Streamer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	speaker.Lock()
	c.mixer.Add(s)
	speaker.Unlock()
}

// Shot is a short falling chirp
func (c *SpeakerCues) Shot() {
	c.play(beep.Take(cueSampleRate.N(80*time.Millisecond), newSweep(cueSampleRate, 1400, 600, 0.15)))
}

// Hit is a lower thud
func (c *SpeakerCues) Hit() {
	c.play(beep.Take(cueSampleRate.N(150*time.Millisecond), newSweep(cueSampleRate, 220, 90, 0.25)))
}

// Close silences the mixer
func (c *SpeakerCues) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	speaker.Lock()
	c.mixer.Clear()
	speaker.Unlock()
}

// sweep is a sine whose frequency slides linearly from `from` to `to` over
// 100ms with a quick fade in
type sweep struct {
	sr       beep.SampleRate
	from, to float64
	gain     float64
	phase    float64
	pos      int
}

func newSweep(sr beep.SampleRate, from, to, gain float64) *sweep {
	return &sweep{sr: sr, from: from, to: to, gain: gain}
}

func (g *sweep) Stream(samples [][2]float64) (n int, ok bool) {
	span := float64(g.sr.N(100 * time.Millisecond))
	for i := range samples {
		t := math.Min(float64(g.pos)/span, 1)
		freq := g.from + (g.to-g.from)*t
		g.phase += 2 * math.Pi * freq / float64(g.sr)
		env := math.Min(float64(g.pos)/float64(g.sr)/0.005, 1)
		v := math.Sin(g.phase) * g.gain * env
		samples[i][0] = v
		samples[i][1] = v
		g.pos++
	}
	return len(samples), true
}

func (g *sweep) Err() error {
	return nil
}
