// Package idgen generates catalog identifiers: name-derived ProSmart ids,
// Hydralite slugs and the short tokens that salt upload paths.
package idgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/speps/go-hashids/v2"
)

const (
	letters      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerRatio   = 0.7
	maxAttempts  = 50
	tokenAlpha   = "abcdefghijklmnopqrstuvwxyz0123456789"
	tokenMinSize = 6
)

// Shape is the letters+digits layout of a ProSmart id.
type Shape struct {
	Letters int
	Digits  int
}

var (
	ProductShape     = Shape{Letters: 5, Digits: 4}
	CategoryShape    = Shape{Letters: 6, Digits: 1}
	SubcategoryShape = Shape{Letters: 7, Digits: 1}
)

var ErrExhausted = errors.New("idgen: no free id after retries")

// ExistsFunc reports whether an id is already taken.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

type Generator struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	hd      *hashids.HashID
	counter atomic.Int64
	now     func() time.Time
}

// New seeds a generator. The hashids salt is random per process, so tokens
// are unguessable but not stable across restarts.
func New() (*Generator, error) {
	return NewWithSeed(rand.Uint64(), rand.Uint64(), uuid.NewString())
}

func NewWithSeed(seed1, seed2 uint64, salt string) (*Generator, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.Alphabet = tokenAlpha
	data.MinLength = tokenMinSize
	hd, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("init hashids: %w", err)
	}
	return &Generator{
		rnd: rand.New(rand.NewPCG(seed1, seed2)),
		hd:  hd,
		now: time.Now,
	}, nil
}

// FromName builds one candidate id: letters sampled from the alphabetic
// characters of name (padded with random letters), mostly lowercase,
// followed by random digits.
func (g *Generator) FromName(name string, shape Shape) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	chars := []rune(cleanChars(name))
	for len(chars) < shape.Letters {
		chars = append(chars, rune(letters[g.rnd.IntN(len(letters))]))
	}
	g.rnd.Shuffle(len(chars), func(i, j int) { chars[i], chars[j] = chars[j], chars[i] })

	var b strings.Builder
	for _, c := range chars[:shape.Letters] {
		if g.rnd.Float64() < lowerRatio {
			b.WriteString(strings.ToLower(string(c)))
		} else {
			b.WriteString(strings.ToUpper(string(c)))
		}
	}
	for i := 0; i < shape.Digits; i++ {
		b.WriteByte(byte('0' + g.rnd.IntN(10)))
	}
	return b.String()
}

// Unique retries FromName until exists reports a free id.
func (g *Generator) Unique(ctx context.Context, name string, shape Shape, exists ExistsFunc) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		id := g.FromName(name, shape)
		taken, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check id %s: %w", id, err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrExhausted
}

// Token returns a short lowercase token, unique within this process.
func (g *Generator) Token() string {
	n := g.counter.Add(1)
	g.mu.Lock()
	r := g.rnd.Int64N(1 << 30)
	g.mu.Unlock()
	tok, err := g.hd.EncodeInt64([]int64{r, n})
	if err != nil {
		// only fails for negative input
		return fmt.Sprintf("%x%x", r, n)
	}
	return tok
}

// HydraliteCategoryID returns "hydralite_cat_<token>".
func (g *Generator) HydraliteCategoryID() string {
	tok, err := g.hd.EncodeInt64([]int64{g.now().UnixMilli(), g.counter.Add(1)})
	if err != nil {
		tok = g.Token()
	}
	return "hydralite_cat_" + tok
}

var (
	nonAlpha   = regexp.MustCompile(`[^a-zA-Z]`)
	whitespace = regexp.MustCompile(`\s+`)
	nonSlug    = regexp.MustCompile(`[^a-z0-9-]`)
)

func cleanChars(s string) string {
	return nonAlpha.ReplaceAllString(s, "")
}

// Slug derives a Hydralite product id from its name.
func Slug(name string) string {
	s := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return nonSlug.ReplaceAllString(s, "")
}
