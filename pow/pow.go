// Package pow solves the proof-of-work challenge the chat service issues
// before it accepts a completion request.
package pow

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

const AlgorithmDeepSeekHashV1 = "DeepSeekHashV1"

var ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

// UnsupportedAlgorithmError reports a challenge whose algorithm tag is not registered.
type UnsupportedAlgorithmError struct {
	Algorithm string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnsupportedAlgorithm, e.Algorithm)
}

func (e *UnsupportedAlgorithmError) Unwrap() error {
	return ErrUnsupportedAlgorithm
}

// Challenge is the puzzle returned by chat/create_pow_challenge.
type Challenge struct {
	Algorithm   string `json:"algorithm"`
	Challenge   string `json:"challenge"`
	Salt        string `json:"salt"`
	Signature   string `json:"signature,omitempty"`
	Difficulty  int64  `json:"difficulty"`
	ExpireAt    int64  `json:"expire_at"`
	ExpireAfter int64  `json:"expire_after,omitempty"`
	TargetPath  string `json:"target_path,omitempty"`
}

// Solution is a challenge with the nonce that solves it. A nil Answer means
// no nonce was found within the search bound.
type Solution struct {
	Challenge
	Answer *int64 `json:"answer"`
	// Attempts is the number of nonces hashed.
	Attempts int64 `json:"-"`
}

var schemes = map[string]func([]byte) [32]byte{
	AlgorithmDeepSeekHashV1: Sum256V1,
}

// Supported reports whether algorithm names a registered scheme.
func Supported(algorithm string) bool {
	_, ok := schemes[algorithm]
	return ok
}

type Option func(*Solver)

// WithMaxAttempts caps the number of nonces tried per challenge. Zero or a
// negative value leaves the challenge's own budget in place.
func WithMaxAttempts(n int64) Option {
	return func(s *Solver) {
		s.maxAttempts = n
	}
}

// Solver searches for nonces. It holds no mutable state and is safe for
// concurrent use.
type Solver struct {
	maxAttempts int64
}

func NewSolver(opts ...Option) *Solver {
	s := &Solver{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Default is shared by callers that need no search ceiling of their own.
var Default = NewSolver()

// Solve returns the lowest nonce below the search bound whose digest of
// "{salt}_{expire_at}_{nonce}" matches ch.Challenge.
func (s *Solver) Solve(ch Challenge) (Solution, error) {
	hash, ok := schemes[ch.Algorithm]
	if !ok {
		return Solution{}, &UnsupportedAlgorithmError{Algorithm: ch.Algorithm}
	}

	sol := Solution{Challenge: ch}
	target, ok := decodeTarget(ch.Challenge)
	if !ok {
		return sol, nil
	}

	buf := Prefix(ch)
	n := len(buf)
	bound := s.bound(ch)
	for nonce := int64(0); nonce < bound; nonce++ {
		buf = strconv.AppendInt(buf[:n], nonce, 10)
		if sum := hash(buf); bytes.Equal(sum[:], target) {
			answer := nonce
			sol.Answer = &answer
			sol.Attempts = nonce + 1
			return sol, nil
		}
	}
	sol.Attempts = max(bound, 0)
	return sol, nil
}

// Satisfies reports whether nonce solves ch. The answer does not depend on
// ch.Difficulty, which only bounds the search.
func Satisfies(ch Challenge, nonce int64) (bool, error) {
	hash, ok := schemes[ch.Algorithm]
	if !ok {
		return false, &UnsupportedAlgorithmError{Algorithm: ch.Algorithm}
	}
	target, ok := decodeTarget(ch.Challenge)
	if !ok {
		return false, nil
	}
	sum := hash(strconv.AppendInt(Prefix(ch), nonce, 10))
	return bytes.Equal(sum[:], target), nil
}

// Prefix builds "{salt}_{expire_at}_".
func Prefix(ch Challenge) []byte {
	buf := make([]byte, 0, len(ch.Salt)+42)
	buf = append(buf, ch.Salt...)
	buf = append(buf, '_')
	buf = strconv.AppendInt(buf, ch.ExpireAt, 10)
	return append(buf, '_')
}

func (s *Solver) bound(ch Challenge) int64 {
	if s.maxAttempts > 0 && s.maxAttempts < ch.Difficulty {
		return s.maxAttempts
	}
	return ch.Difficulty
}

// decodeTarget accepts only the lowercase hex form the digest is compared in.
func decodeTarget(challenge string) ([]byte, bool) {
	target, err := hex.DecodeString(challenge)
	if err != nil || len(target) != digestSize || hex.EncodeToString(target) != challenge {
		return nil, false
	}
	return target, true
}
