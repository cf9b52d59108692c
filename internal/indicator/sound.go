package indicator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueError
)

const (
	cueRate  = 16000
	cueLevel = 0.18
	cueRest  = 22 * time.Millisecond
	cueFade  = 5 * time.Millisecond
)

// note is one pitch of a cue. Notes of a cue are separated by cueRest.
type note struct {
	hz     float64
	length time.Duration
}

// Rising for start, falling for error, one low blip for stop.
var cueScores = map[cueKind][]note{
	cueStart:    {{880, 70 * time.Millisecond}, {1175, 70 * time.Millisecond}},
	cueStop:     {{620, 120 * time.Millisecond}},
	cueComplete: {{740, 65 * time.Millisecond}, {988, 90 * time.Millisecond}},
	cueError:    {{480, 75 * time.Millisecond}, {360, 90 * time.Millisecond}},
}

var renderedCues = sync.OnceValue(func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(cueScores))
	for kind, score := range cueScores {
		out[kind] = renderScore(score, cueLevel)
	}
	return out
})

// emitCue plays the tone for kind on the default sink and blocks until it drains.
func emitCue(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pcm := cueSamples(kind)
	if len(pcm) == 0 {
		return nil
	}
	return playPCM(ctx, pcm)
}

func cueSamples(kind cueKind) []int16 {
	return renderedCues()[kind]
}

// pcmFeed hands out a fixed buffer to a pulse playback stream.
type pcmFeed struct {
	ctx context.Context
	pcm []int16
}

func (f *pcmFeed) read(buf []int16) (int, error) {
	if f.ctx.Err() != nil || len(f.pcm) == 0 {
		return 0, pulse.EndOfData
	}
	n := copy(buf, f.pcm)
	f.pcm = f.pcm[n:]
	if len(f.pcm) == 0 {
		return n, pulse.EndOfData
	}
	return n, nil
}

func playPCM(ctx context.Context, pcm []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("murmur"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	feed := &pcmFeed{ctx: ctx, pcm: pcm}
	stream, err := client.NewPlayback(
		pulse.Int16Reader(feed.read),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("murmur cue"),
	)
	if err != nil {
		return fmt.Errorf("open cue playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stream.Error(); err != nil {
		return fmt.Errorf("cue playback: %w", err)
	}
	return nil
}

// renderScore concatenates the notes with silent rests between them.
func renderScore(score []note, level float64) []int16 {
	rest := sampleCount(cueRest)
	var pcm []int16
	for i, n := range score {
		if i > 0 {
			pcm = append(pcm, make([]int16, rest)...)
		}
		pcm = append(pcm, renderNote(n, level)...)
	}
	return pcm
}

// renderNote produces a sine at n.hz with short linear fades at both ends
// so the note starts and stops without a click.
func renderNote(n note, level float64) []int16 {
	count := sampleCount(n.length)
	if count == 0 || n.hz <= 0 || level <= 0 {
		return nil
	}
	ramp := min(max(count/10, 1), sampleCount(cueFade))

	step := 2 * math.Pi * n.hz / cueRate
	pcm := make([]int16, count)
	for i := range pcm {
		edge := min(i, count-1-i)
		gain := min(float64(edge)/float64(ramp), 1)
		pcm[i] = int16(math.Round(math.Sin(step*float64(i)) * level * gain * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueRate))
}
