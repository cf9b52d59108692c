package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// 20ms of s16 mono at 16 kHz.
const fragmentBytes = 640

// PulseSource records from the Pulse source chosen by Input/Fallback at
// open time, so device changes between sessions are picked up.
type PulseSource struct {
	Input    string
	Fallback string
	Logger   *slog.Logger
}

// Open selects a device and creates a 16 kHz mono s16le record stream.
func (s PulseSource) Open(ctx context.Context, sink io.Writer) (Stream, error) {
	selection, err := SelectDevice(ctx, s.Input, s.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && s.Logger != nil {
		s.Logger.Warn("audio device fallback", "warning", selection.Warning)
	}

	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selection.Device.ID, err)
	}

	stream, err := client.NewRecord(
		pulse.NewWriter(sink, pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes),
		pulse.RecordMediaName("murmur dictation"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("audio capture opened", "device", selection.Device.ID, "description", selection.Device.Description)
	}
	return &pulseStream{client: client, stream: stream}, nil
}

// pulseStream ties the record stream to the client connection that owns it.
type pulseStream struct {
	client *pulse.Client
	stream *pulse.RecordStream
}

func (p *pulseStream) Start()       { p.stream.Start() }
func (p *pulseStream) Stop()        { p.stream.Stop() }
func (p *pulseStream) Error() error { return p.stream.Error() }

func (p *pulseStream) Close() {
	p.stream.Close()
	p.client.Close()
}
