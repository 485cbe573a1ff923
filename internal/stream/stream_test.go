// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FRAME READER TESTS
// =============================================================================

func TestFrameReader_Process(t *testing.T) {
	input := `{"content":"При"}
{"content":"вет"}

not json
{"done":true}
{"content":"ignored"}
`
	r := NewFrameReader(strings.NewReader(input))
	var got []string
	err := r.Process(context.Background(), func(c string) { got = append(got, c) })

	require.NoError(t, err)
	assert.Equal(t, []string{"При", "вет"}, got)
	assert.Equal(t, "Привет", r.Accumulated())
	assert.Equal(t, 2, r.Frames())
}

func TestFrameReader_ErrorFrame(t *testing.T) {
	r := NewFrameReader(strings.NewReader("{\"content\":\"a\"}\n{\"error\":\"model overloaded\"}\n"))
	err := r.Process(context.Background(), func(string) {})

	var cerr *ClientError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrTypeRemote, cerr.Type)
	assert.Equal(t, "model overloaded", cerr.Message)
}

func TestFrameReader_Truncated(t *testing.T) {
	r := NewFrameReader(strings.NewReader(`{"content":"a"}`))
	err := r.Process(context.Background(), func(string) {})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestFrameReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewFrameReader(strings.NewReader(`{"done":true}`)).Process(ctx, func(string) {})
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func ndjsonServer(t *testing.T, handler func(w http.ResponseWriter, req ChatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
			return
		case "/api/chat":
		default:
			http.NotFound(w, r)
			return
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFrames(w http.ResponseWriter, frames ...Frame) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	for _, f := range frames {
		enc.Encode(f)
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
	}
}

func collect(t *testing.T, ch <-chan Chunk) (string, error) {
	t.Helper()
	var sb strings.Builder
	for c := range ch {
		if c.Err != nil {
			return sb.String(), c.Err
		}
		sb.WriteString(c.Content)
		if c.Done {
			return sb.String(), nil
		}
	}
	return sb.String(), ErrTruncated
}

func TestClient_Stream(t *testing.T) {
	var seen ChatRequest
	srv := ndjsonServer(t, func(w http.ResponseWriter, req ChatRequest) {
		seen = req
		writeFrames(w, Frame{Content: "Hel"}, Frame{Content: "lo"}, Frame{Done: true})
	})

	c := NewClientWithConfig(&ClientConfig{Endpoint: srv.URL + "/api/chat"})
	ch, err := c.Stream(context.Background(), ChatRequest{
		Messages: []HistoryMessage{{Role: "user", Content: "hi"}},
		ChatID:   "gpt-4",
	})
	require.NoError(t, err)

	text, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, "gpt-4", seen.ChatID)
	require.Len(t, seen.Messages, 1)
}

func TestClient_StreamErrorFrame(t *testing.T) {
	srv := ndjsonServer(t, func(w http.ResponseWriter, _ ChatRequest) {
		writeFrames(w, Frame{Content: "par"}, Frame{Error: "upstream failed"})
	})

	ch, err := NewClientWithConfig(&ClientConfig{Endpoint: srv.URL + "/api/chat"}).Stream(context.Background(), ChatRequest{})
	require.NoError(t, err)
	_, err = collect(t, ch)

	var cerr *ClientError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrTypeRemote, cerr.Type)
}

func TestClient_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClientWithConfig(&ClientConfig{Endpoint: srv.URL}).Stream(context.Background(), ChatRequest{})
	var cerr *ClientError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrTypeInvalidResponse, cerr.Type)
	assert.Contains(t, cerr.Message, "Internal Server Error")
}

func TestClient_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClientWithConfig(&ClientConfig{Endpoint: url + "/api/chat"}).Stream(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestClient_CancelStopsDelivery(t *testing.T) {
	release := make(chan struct{})
	srv := ndjsonServer(t, func(w http.ResponseWriter, _ ChatRequest) {
		writeFrames(w, Frame{Content: "first"})
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewClientWithConfig(&ClientConfig{Endpoint: srv.URL + "/api/chat"}).Stream(ctx, ChatRequest{})
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "first", first.Content)
	cancel()

	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestClient_CheckHealth(t *testing.T) {
	srv := ndjsonServer(t, func(http.ResponseWriter, ChatRequest) {})
	c := NewClientWithConfig(&ClientConfig{Endpoint: srv.URL + "/api/chat"})
	assert.NoError(t, c.CheckHealth(context.Background()))
}

func TestStreamError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &StreamError{ConversationID: "c", Err: ErrTruncated})
	assert.ErrorIs(t, err, ErrStream)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.NotErrorIs(t, err, ErrTimeout)
}
