// Package rpcode generates short, human-typeable room codes.
package rpcode

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// Collision odds per attempt are negligible at sane code lengths, so the
// retry loop effectively terminates on the first draw. The cap exists
// only so a broken store or empty alphabet cannot spin forever.
const maxAttempts = 1000

var ErrTooManyAttempts = errors.New("rpcode: gave up generating a unique code")

// ExistsFunc reports whether a room with the given code already exists.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces room codes of a fixed length drawn from a fixed
// alphabet. The alphabet should exclude ambiguous characters.
type Generator struct {
	length   int
	alphabet string
	rand     io.Reader
}

// New returns a Generator. A nil random source falls back to crypto/rand.
func New(length int, alphabet string, random io.Reader) *Generator {
	if random == nil {
		random = rand.Reader
	}
	return &Generator{length: length, alphabet: alphabet, rand: random}
}

// Generate returns a fresh code not currently present per exists.
// Attempts are strictly sequential; each draws fresh random bytes.
func (g *Generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, ok, err := g.draw()
		if err != nil {
			return "", err
		}
		if !ok {
			// Filtering left too few characters; discard and redraw.
			continue
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrTooManyAttempts
}

// draw produces one candidate: ample random bytes, base64-encoded, then
// filtered to the allowed alphabet and truncated to the target length.
func (g *Generator) draw() (string, bool, error) {
	buf := make([]byte, g.length*2)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", false, err
	}

	token := base64.StdEncoding.EncodeToString(buf)

	var b strings.Builder
	for _, c := range token {
		if strings.ContainsRune(g.alphabet, c) {
			b.WriteRune(c)
			if b.Len() == g.length {
				break
			}
		}
	}
	if b.Len() < g.length {
		return "", false, nil
	}
	return b.String(), true, nil
}
