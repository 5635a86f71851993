package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/tilt-alarm/parameter"
)

// AlarmTone generates an endless pattern of short beeps followed by a gap
type AlarmTone struct {
	sr     beep.SampleRate
	freq   float64
	volume float64
	pos    int

	on     int // samples per beep
	cycle  int // samples per beep + silence
	burst  int // samples per burst including the trailing gap
	beeps  int
	attack int
}

// NewAlarmTone creates the alarm tone generator
func NewAlarmTone(sr beep.SampleRate) *AlarmTone {
	on := sr.N(parameter.AlarmBeepOn)
	cycle := on + sr.N(parameter.AlarmBeepOff)
	return &AlarmTone{
		sr:     sr,
		freq:   parameter.AlarmToneHz,
		volume: parameter.AlarmVolume,
		on:     on,
		cycle:  cycle,
		beeps:  parameter.AlarmBeepsPerBurst,
		burst:  cycle*parameter.AlarmBeepsPerBurst + sr.N(parameter.AlarmBurstGap),
		attack: sr.N(5 * time.Millisecond),
	}
}

// Period is the length of one burst
func (g *AlarmTone) Period() int {
	return g.burst
}

func (g *AlarmTone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		sample := g.sampleAt(g.pos)
		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
		if g.pos == g.burst {
			g.pos = 0
		}
	}
	return len(samples), true
}

func (g *AlarmTone) sampleAt(pos int) float64 {
	if pos >= g.cycle*g.beeps {
		return 0 // Gap after the burst
	}
	inBeep := pos % g.cycle
	if inBeep >= g.on {
		return 0
	}

	// Linear attack and release keep the edges click-free
	envelope := 1.0
	if inBeep < g.attack {
		envelope = float64(inBeep) / float64(g.attack)
	} else if g.on-inBeep < g.attack {
		envelope = float64(g.on-inBeep) / float64(g.attack)
	}

	t := float64(inBeep) / float64(g.sr)
	// Fundamental plus a quiet octave for a harsher edge
	wave := 0.8*math.Sin(2*math.Pi*g.freq*t) + 0.2*math.Sin(4*math.Pi*g.freq*t)
	return g.volume * envelope * wave
}

func (g *AlarmTone) Err() error {
	return nil
}
