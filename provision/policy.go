package provision

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Verdict decides whether an embedded payload may be materialized.
type Verdict int

const (
	ALLOW Verdict = iota
	DENY
)

func (v Verdict) String() string {
	switch v {
	case ALLOW:
		return "allow"
	case DENY:
		return "deny"
	default:
		return fmt.Sprintf("verdict(%d)", v)
	}
}

var ErrDenied = errors.New("provision: payload denied by digest policy")

// PolicyError reports the digest of a denied payload.
type PolicyError struct {
	Verdict Verdict
	Digest  string
}

func (e *PolicyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("provision: %s digest %s", e.Verdict, e.Digest)
}

func (e *PolicyError) Is(target error) bool {
	return target == ErrDenied
}

type policyKey struct{}

type digestPolicy struct {
	defaultVerdict Verdict
	rules          map[[32]byte]Verdict
}

func (p *digestPolicy) clone() *digestPolicy {
	c := &digestPolicy{rules: make(map[[32]byte]Verdict)}
	if p == nil {
		return c
	}
	c.defaultVerdict = p.defaultVerdict
	for k, v := range p.rules {
		c.rules[k] = v
	}
	return c
}

func (p *digestPolicy) evaluate(digest [32]byte) Verdict {
	if p == nil {
		return ALLOW
	}
	if v, ok := p.rules[digest]; ok {
		return v
	}
	return p.defaultVerdict
}

func policyFrom(ctx context.Context) *digestPolicy {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(policyKey{}).(*digestPolicy)
	return p
}

// WithPolicy returns a context whose digest policy falls back to verdict
// when no rule matches.
//
//	ctx := provision.WithPolicy(ctx, provision.DENY)
//	ctx, err := provision.WithRule(ctx, provision.ALLOW, sha256sums)
func WithPolicy(ctx context.Context, verdict Verdict) context.Context {
	p := policyFrom(ctx).clone()
	p.defaultVerdict = verdict
	return context.WithValue(ctx, policyKey{}, p)
}

// WithRule adds explicit rules for sha256 digests. A digest may be given as
// a [32]byte, a hex string, or sha256sum-formatted content as a string,
// []byte or io.Reader (file names are ignored). A later rule for the same
// digest replaces an earlier one.
func WithRule(ctx context.Context, verdict Verdict, digests ...any) (context.Context, error) {
	if verdict != ALLOW && verdict != DENY {
		return ctx, fmt.Errorf("unsupported verdict %d", verdict)
	}
	if len(digests) == 0 {
		return ctx, nil
	}
	var parsed [][32]byte
	for _, d := range digests {
		sums, err := parseDigests(d)
		if err != nil {
			return ctx, err
		}
		parsed = append(parsed, sums...)
	}
	p := policyFrom(ctx).clone()
	for _, d := range parsed {
		p.rules[d] = verdict
	}
	return context.WithValue(ctx, policyKey{}, p), nil
}

// CheckDigest returns a *PolicyError if the policy in ctx denies digest.
func CheckDigest(ctx context.Context, digest [32]byte) error {
	return checkDigest(ctx, digest)
}

func checkDigest(ctx context.Context, digest [32]byte) error {
	if policyFrom(ctx).evaluate(digest) == DENY {
		return &PolicyError{Verdict: DENY, Digest: hex.EncodeToString(digest[:])}
	}
	return nil
}

func parseDigests(v any) ([][32]byte, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case [32]byte:
		return [][32]byte{d}, nil
	case string:
		return parseSums(d)
	case []byte:
		if len(d) == 32 {
			var sum [32]byte
			copy(sum[:], d)
			return [][32]byte{sum}, nil
		}
		return parseSums(string(d))
	case io.Reader:
		data, err := io.ReadAll(d)
		if err != nil {
			return nil, err
		}
		return parseSums(string(data))
	default:
		return nil, fmt.Errorf("unsupported checksum type %T", v)
	}
}

// parseSums reads one digest per line in sha256sum(1) format. Blank lines
// and # comments are skipped.
func parseSums(s string) ([][32]byte, error) {
	var sums [][32]byte
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) < 64 {
			return nil, fmt.Errorf("line shorter than sha256 digest: %q", line)
		}
		if len(line) > 64 && line[64] != ' ' && line[64] != '\t' {
			return nil, fmt.Errorf("invalid sha256 digest: %q", line)
		}
		b, err := hex.DecodeString(line[:64])
		if err != nil {
			return nil, fmt.Errorf("decode sha256 digest: %w", err)
		}
		var sum [32]byte
		copy(sum[:], b)
		sums = append(sums, sum)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sums, nil
}
