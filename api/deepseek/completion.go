package deepseek

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	"github.com/maxduke/go-deepseek-api/prompt"
)

// Completion returns the whole reply as one string. The session is deleted
// before it returns. When the reply was read completely but the delete
// failed, the text comes back with an error matching ErrSessionCleanup. Any
// other error returns no text.
func (c *Client) Completion(ctx context.Context, messages []prompt.Message, opts Options) (string, error) {
	stream, err := c.CompletionStream(ctx, messages, opts)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for stream.Next() {
		b.WriteString(stream.Text())
	}
	err = stream.Err()
	if cerr := stream.Close(); err == nil {
		err = cerr
	}
	if err != nil && !errors.Is(err, ErrSessionCleanup) {
		return "", err
	}
	return b.String(), err
}

// CompletionStream starts a completion and returns its reply as a stream.
// The caller must Close the stream; Close deletes the remote session.
func (c *Client) CompletionStream(ctx context.Context, messages []prompt.Message, opts Options) (*Stream, error) {
	rendered := prompt.Render(messages)
	token, err := c.resolveToken(opts)
	if err != nil {
		return nil, err
	}

	transport, err := c.newTransport()
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}
	s := &session{
		cfg:       c.cfg,
		solver:    c.solver,
		transport: transport,
		token:     token,
	}

	if err := s.create(ctx); err != nil {
		transport.CloseIdleConnections()
		return nil, err
	}

	body, err := s.complete(ctx, rendered, opts)
	if err != nil {
		_ = s.release(ctx)
		return nil, err
	}

	return &Stream{
		ctx:    ctx,
		sess:   s,
		body:   body,
		reader: bufio.NewReader(body),
	}, nil
}

func (s *session) complete(ctx context.Context, rendered string, opts Options) (io.ReadCloser, error) {
	powHeader, err := s.powResponse(ctx)
	if err != nil {
		return nil, err
	}

	req, err := s.newRequest(ctx, completionPath, completionRequest{
		ChatSessionID:   s.id,
		Prompt:          rendered,
		ThinkingEnabled: opts.ThinkingEnabled,
		SearchEnabled:   opts.SearchEnabled,
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set(powResponseHeader, powHeader)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.transport.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", completionPath, err)
	}

	// error replies come back as a JSON envelope instead of a stream
	if resp.StatusCode >= http.StatusBadRequest || strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		defer resp.Body.Close()
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return nil, &ServiceError{Op: completionPath, StatusCode: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
			}
			return io.NopCloser(strings.NewReader("")), nil
		}
		if err := envelopeError(completionPath, resp.StatusCode, &env); err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &ServiceError{Op: completionPath, StatusCode: resp.StatusCode, Code: env.Code, Msg: http.StatusText(resp.StatusCode)}
		}
		return io.NopCloser(strings.NewReader("")), nil
	}
	return resp.Body, nil
}

// Stream yields reply fragments as transport lines arrive. It is single-pass
// and not safe for concurrent use. Reaching the end of the reply releases the
// session; Close releases it earlier.
type Stream struct {
	ctx    context.Context
	sess   *session
	body   io.ReadCloser
	reader *bufio.Reader

	text     string
	err      error
	done     bool
	closed   bool
	closeErr error
}

// Next reads transport lines until one carries a fragment.
func (s *Stream) Next() bool {
	if s.done || s.closed {
		return false
	}
	for {
		line, err := s.reader.ReadString('\n')
		if text, ok := parseLine(line); ok {
			s.text = text
			if err != nil {
				s.finish(err)
			}
			return true
		}
		if err != nil {
			s.finish(err)
			return false
		}
	}
}

func (s *Stream) finish(err error) {
	s.done = true
	if !errors.Is(err, io.EOF) {
		s.err = fmt.Errorf("%w: %w", ErrStreamBroken, err)
	}
	if cerr := s.Close(); s.err == nil {
		s.err = cerr
	}
}

// Text returns the fragment read by the last successful Next.
func (s *Stream) Text() string {
	return s.text
}

// Err returns the first read or cleanup error. Read errors match
// ErrStreamBroken and cleanup errors match ErrSessionCleanup. A clean end of
// stream is not an error.
func (s *Stream) Err() error {
	return s.err
}

// Close stops the stream and releases the session. Later calls return the
// first result.
func (s *Stream) Close() error {
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	_ = s.body.Close()
	s.closeErr = s.sess.release(s.ctx)
	return s.closeErr
}

// parseLine extracts the delta text from one response line. Lines without
// a JSON payload or without string content yield nothing; an empty string is
// still a fragment.
func parseLine(line string) (string, bool) {
	if !strings.Contains(line, "{") {
		return "", false
	}
	_, payload, ok := strings.Cut(line, ":")
	if !ok {
		return "", false
	}
	payload = strings.TrimSpace(payload)
	if !gjson.Valid(payload) {
		return "", false
	}
	content := gjson.Get(payload, contentPath)
	if content.Type != gjson.String {
		return "", false
	}
	return content.Str, true
}
