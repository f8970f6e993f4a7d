package credential

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	DefaultPrefix = "REG"

	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffixLength   = 8
)

// Generator produces public registration identifiers of the form
// <prefix><last six digits of unix millis><eight random [A-Z0-9]>.
// Uniqueness is enforced by the registration store, not here.
type Generator struct {
	Prefix string
	Now    func() time.Time
	Rand   io.Reader
}

func NewGenerator(prefix string) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{Prefix: prefix, Now: time.Now, Rand: rand.Reader}
}

func (g *Generator) Generate() string {
	now := g.Now
	if now == nil {
		now = time.Now
	}
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}

	millis := now().UnixMilli() % 1_000_000
	suffix := make([]byte, suffixLength)
	max := big.NewInt(int64(len(suffixAlphabet)))
	for i := range suffix {
		n, err := rand.Int(src, max)
		if err != nil {
			// Generation must not fail; degrade to the clock.
			n = big.NewInt(now().UnixNano() % int64(len(suffixAlphabet)))
		}
		suffix[i] = suffixAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s%06d%s", g.Prefix, millis, suffix)
}
