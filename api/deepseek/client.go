// Package deepseek drives one chat completion against the DeepSeek web API:
// create a session, solve its proof-of-work challenge, post the rendered
// prompt, read the streamed reply and delete the session.
package deepseek

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"github.com/linweiyuan/go-logger/logger"
	"github.com/tidwall/sjson"

	"github.com/maxduke/go-deepseek-api/api"
	"github.com/maxduke/go-deepseek-api/config"
	"github.com/maxduke/go-deepseek-api/pow"
)

type Client struct {
	cfg          *config.Config
	newTransport func() (Transport, error)
	solver       Solver
}

type Option func(*Client)

// WithTransport replaces the per-call transport factory.
func WithTransport(newTransport func() (Transport, error)) Option {
	return func(c *Client) {
		c.newTransport = newTransport
	}
}

func WithSolver(s Solver) Option {
	return func(c *Client) {
		c.solver = s
	}
}

func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		solver: pow.Default,
		newTransport: func() (Transport, error) {
			return api.NewHTTPClient(cfg)
		},
	}
	if cfg.PoWMaxAttempts > 0 {
		c.solver = pow.NewSolver(pow.WithMaxAttempts(cfg.PoWMaxAttempts))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// session is the state of a single one-shot exchange. It owns its transport.
type session struct {
	cfg       *config.Config
	solver    Solver
	transport Transport
	token     string
	id        string
}

func (c *Client) resolveToken(opts Options) (string, error) {
	if opts.Token != "" {
		return opts.Token, nil
	}
	if c.cfg.Token != "" {
		return c.cfg.Token, nil
	}
	return "", &ConfigError{Key: "DEEPSEEK_TOKEN", Err: ErrMissingToken}
}

func (s *session) newRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", path, err)
	}
	url := strings.TrimSuffix(s.cfg.BaseURL, "/") + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	req.Header.Set("User-Agent", api.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", api.ContentType)
	req.Header.Set(api.AuthorizationHeader, "Bearer "+s.token)
	req.Header.Set("X-Client-Locale", s.cfg.ClientLocale)
	req.Header.Set("X-App-Version", s.cfg.AppVersion)
	req.Header.Set("X-Client-Version", s.cfg.ClientVersion)
	req.Header.Set("X-Client-Platform", s.cfg.ClientPlatform)
	req.Header[http.HeaderOrderKey] = []string{
		"user-agent",
		"accept",
		"content-type",
		"authorization",
		"x-client-locale",
		"x-app-version",
		"x-client-version",
		"x-client-platform",
		"x-ds-pow-response",
	}
	return req, nil
}

// doJSON posts body to path and decodes data.biz_data into out.
func (s *session) doJSON(ctx context.Context, path string, body any, out any) error {
	req, err := s.newRequest(ctx, path, body)
	if err != nil {
		return err
	}
	resp, err := s.transport.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &ServiceError{Op: path, StatusCode: resp.StatusCode, Msg: "undecodable response: " + err.Error()}
	}
	if err := envelopeError(path, resp.StatusCode, &env); err != nil {
		return err
	}
	if out == nil || env.Data == nil || len(env.Data.BizData) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data.BizData, out); err != nil {
		return &ServiceError{Op: path, StatusCode: resp.StatusCode, Code: env.Code, Msg: "unexpected biz_data: " + err.Error()}
	}
	return nil
}

func envelopeError(op string, status int, env *envelope) error {
	if env.Msg != "" {
		return &ServiceError{Op: op, StatusCode: status, Code: env.Code, Msg: env.Msg}
	}
	if env.Data != nil && env.Data.BizCode != 0 && env.Data.BizMsg != "" {
		return &ServiceError{Op: op, StatusCode: status, Code: env.Data.BizCode, Msg: env.Data.BizMsg}
	}
	return nil
}

func (s *session) create(ctx context.Context) error {
	var created createSessionResponse
	if err := s.doJSON(ctx, createSessionPath, createSessionRequest{}, &created); err != nil {
		return err
	}
	if created.ID == "" {
		return &ServiceError{Op: createSessionPath, StatusCode: http.StatusOK, Msg: "empty session id"}
	}
	s.id = created.ID
	logger.Info(fmt.Sprintf("chat session %s created", s.id))
	return nil
}

// delete removes the remote session. Safe to call when none was created.
func (s *session) delete(ctx context.Context) error {
	if s.id == "" {
		return nil
	}
	id := s.id
	s.id = ""
	if err := s.doJSON(ctx, deleteSessionPath, deleteSessionRequest{ChatSessionID: id}, nil); err != nil {
		logger.Error(fmt.Sprintf("failed to delete chat session %s: %v", id, err))
		return err
	}
	logger.Info(fmt.Sprintf("chat session %s deleted", id))
	return nil
}

// release deletes the session and closes the transport. It ignores the
// caller's cancellation so cleanup still reaches the service.
func (s *session) release(ctx context.Context) error {
	err := s.delete(context.WithoutCancel(ctx))
	s.transport.CloseIdleConnections()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionCleanup, err)
	}
	return nil
}

func (s *session) fetchChallenge(ctx context.Context) (json.RawMessage, pow.Challenge, error) {
	var resp createChallengeResponse
	err := s.doJSON(ctx, createChallengePath, createChallengeRequest{TargetPath: completionTargetPath}, &resp)
	if err != nil {
		return nil, pow.Challenge{}, err
	}
	if len(resp.Challenge) == 0 || string(resp.Challenge) == "null" {
		return nil, pow.Challenge{}, &ServiceError{Op: createChallengePath, StatusCode: http.StatusOK, Msg: "empty challenge"}
	}
	var ch pow.Challenge
	if err := json.Unmarshal(resp.Challenge, &ch); err != nil {
		return nil, pow.Challenge{}, &ServiceError{Op: createChallengePath, StatusCode: http.StatusOK, Msg: "unexpected challenge: " + err.Error()}
	}
	return resp.Challenge, ch, nil
}

// powResponse fetches and solves a challenge, returning the header value.
// An unsolved challenge is refetched up to PoWRetries times, then either
// forwarded with a null answer or reported, depending on PoWUnsolved.
func (s *session) powResponse(ctx context.Context) (string, error) {
	for attempt := 0; ; attempt++ {
		raw, ch, err := s.fetchChallenge(ctx)
		if err != nil {
			return "", err
		}
		sol, err := s.solver.Solve(ch)
		if err != nil {
			return "", fmt.Errorf("solve challenge: %w", err)
		}
		if sol.Answer == nil {
			logger.Info(fmt.Sprintf("pow challenge unsolved within %d attempts (try %d)", sol.Attempts, attempt+1))
			if attempt < s.cfg.PoWRetries {
				continue
			}
			if s.cfg.PoWUnsolved == config.UnsolvedFail {
				return "", ErrChallengeUnsolved
			}
		}
		return EncodeSolution(raw, sol.Answer)
	}
}

// EncodeSolution appends "answer" to the challenge object exactly as the
// service sent it and base64-encodes the result. A nil answer is sent as null.
func EncodeSolution(challenge json.RawMessage, answer *int64) (string, error) {
	value := []byte("null")
	if answer != nil {
		value = strconv.AppendInt(nil, *answer, 10)
	}
	out, err := sjson.SetRawBytes(challenge, "answer", value)
	if err != nil {
		return "", fmt.Errorf("encode pow response: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}
