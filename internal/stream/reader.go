// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// =============================================================================
// FRAME READER
// =============================================================================

// FrameReader parses a newline-delimited JSON frame stream.
type FrameReader struct {
	reader      *bufio.Reader
	accumulator strings.Builder
	frames      int
}

// NewFrameReader creates a frame reader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{reader: bufio.NewReader(r)}
}

// Process reads frames and calls fn with each content fragment. It returns
// nil after a done frame, a ClientError for an error frame or a stream that
// ends early, and ctx.Err() if ctx is canceled.
func (s *FrameReader) Process(ctx context.Context, fn func(content string)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := s.readFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrTruncated
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}
		if frame == nil {
			continue
		}

		switch {
		case frame.Error != "":
			return &ClientError{Type: ErrTypeRemote, Message: frame.Error}
		case frame.Content != "":
			s.accumulator.WriteString(frame.Content)
			s.frames++
			fn(frame.Content)
		}
		if frame.Done {
			return nil
		}
	}
}

// readFrame returns the next frame, or nil for a blank or malformed line.
func (s *FrameReader) readFrame() (*Frame, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	var frame Frame
	if err := json.Unmarshal(line, &frame); err != nil {
		// Skip malformed lines
		return nil, nil
	}
	return &frame, nil
}

// Accumulated returns all content read so far.
func (s *FrameReader) Accumulated() string {
	return s.accumulator.String()
}

// Frames returns the number of content frames read.
func (s *FrameReader) Frames() int {
	return s.frames
}
