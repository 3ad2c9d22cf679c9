/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package media wraps the local tracks a session sends. Capturing frames is
// left to the caller; the session only adds, replaces and stops tracks.
package media

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	pionmedia "github.com/pion/webrtc/v3/pkg/media"
)

var (
	// ErrTrackStopped is returned when writing to a stopped track.
	ErrTrackStopped = errors.New("track stopped")
	// ErrNoVideoSender is returned when a video track should be replaced
	// but the connection sends no video.
	ErrNoVideoSender = errors.New("no video sender to replace")
	// ErrAmbiguousVideoSender is returned when more than one video sender
	// exists and the replacement target is not obvious.
	ErrAmbiguousVideoSender = errors.New("more than one video sender")
)

// Track is a local track owned by the caller. Sessions only reference and
// stop them.
type Track interface {
	ID() string
	Kind() webrtc.RTPCodecType
	Stop() error
}

// LocalTrack is a sample-fed pion track that can be stopped.
type LocalTrack struct {
	*webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	stopped bool
}

var _ Track = (*LocalTrack)(nil)

// NewVideoTrack creates a VP8 track.
func NewVideoTrack(id, streamID string) (*LocalTrack, error) {
	return newTrack(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, id, streamID)
}

// NewAudioTrack creates an Opus track.
func NewAudioTrack(id, streamID string) (*LocalTrack, error) {
	return newTrack(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}, id, streamID)
}

func newTrack(c webrtc.RTPCodecCapability, id, streamID string) (*LocalTrack, error) {
	t, err := webrtc.NewTrackLocalStaticSample(c, id, streamID)
	if err != nil {
		return nil, fmt.Errorf("create %s track: %w", c.MimeType, err)
	}
	return &LocalTrack{TrackLocalStaticSample: t}, nil
}

// WriteSample forwards a sample unless the track was stopped.
func (t *LocalTrack) WriteSample(s pionmedia.Sample) error {
	if t.Stopped() {
		return ErrTrackStopped
	}
	return t.TrackLocalStaticSample.WriteSample(s)
}

// Stop marks the track stopped. Stopping twice is a no-op.
func (t *LocalTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return nil
}

func (t *LocalTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Replacer is the part of *webrtc.RTPSender used to swap tracks.
type Replacer interface {
	ReplaceTrack(track webrtc.TrackLocal) error
}

// ReplaceVideoTrack swaps the track of the only video sender, e.g. for
// screen sharing. Zero or several video senders are errors rather than a
// silent no-op.
func ReplaceVideoTrack(senders []Replacer, track webrtc.TrackLocal) error {
	switch len(senders) {
	case 0:
		return ErrNoVideoSender
	case 1:
		return senders[0].ReplaceTrack(track)
	default:
		return fmt.Errorf("%w: %d senders", ErrAmbiguousVideoSender, len(senders))
	}
}
