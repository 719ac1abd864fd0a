package candidate

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand"
	"strconv"
	"strings"
)

// Option is one answer choice presented to the candidate.
type Option struct {
	Key   string
	Label string
}

// OptionGroup is the four lettered choices of one forced-choice question.
type OptionGroup struct {
	A string
	B string
	C string
	D string
}

func (g OptionGroup) options() []Option {
	return []Option{
		{Key: "A", Label: g.A},
		{Key: "B", Label: g.B},
		{Key: "C", Label: g.C},
		{Key: "D", Label: g.D},
	}
}

// Shuffle presents answer options in a per-candidate order that is stable
// across page reloads. A random seed is persisted per tab, keyed by a
// content hash of the option set; editing the questions invalidates the
// stored seed and produces a fresh order.
type Shuffle struct {
	store TabStore
}

// NewShuffle constructs a Shuffle backed by the given store. A nil store
// disables shuffling; options come back in natural order.
func NewShuffle(store TabStore) *Shuffle {
	return &Shuffle{store: store}
}

// Options returns the presentation order for every question. The same tab
// sees the same order until the seed is reset or the content changes.
func (s *Shuffle) Options(namespace string, groups []OptionGroup) [][]Option {
	ordered := make([][]Option, len(groups))

	if s == nil || s.store == nil {
		for i, group := range groups {
			ordered[i] = group.options()
		}
		return ordered
	}

	seed := s.loadSeed(namespace, groups)
	for i, group := range groups {
		rng := mulberry32(seed + uint32(i) + 1)
		ordered[i] = shuffleOptions(group.options(), rng)
	}
	return ordered
}

// Reset discards the persisted seed so the next Options call draws a new
// presentation order.
func (s *Shuffle) Reset(namespace string, groups []OptionGroup) {
	if s == nil || s.store == nil {
		return
	}
	s.store.Remove(s.seedKey(namespace, groups))
}

func (s *Shuffle) loadSeed(namespace string, groups []OptionGroup) uint32 {
	key := s.seedKey(namespace, groups)
	if raw, ok := s.store.Get(key); ok {
		if parsed, errParse := strconv.ParseUint(raw, 10, 32); errParse == nil {
			return uint32(parsed)
		}
	}
	seed := newSeed()
	s.store.Set(key, strconv.FormatUint(uint64(seed), 10))
	return seed
}

func (s *Shuffle) seedKey(namespace string, groups []OptionGroup) string {
	return fmt.Sprintf("%s.%s.%s", seedKeyPrefix, namespace, hashGroups(groups))
}

// hashGroups derives a short content fingerprint of the option labels,
// djb2 over the joined labels rendered in base 36.
func hashGroups(groups []OptionGroup) string {
	var b strings.Builder
	for _, group := range groups {
		b.WriteString(group.A)
		b.WriteByte('|')
		b.WriteString(group.B)
		b.WriteByte('|')
		b.WriteString(group.C)
		b.WriteByte('|')
		b.WriteString(group.D)
		b.WriteByte('\n')
	}

	hash := uint32(5381)
	for _, c := range []byte(b.String()) {
		hash = hash<<5 + hash + uint32(c)
	}
	return strconv.FormatUint(uint64(hash), 36)
}

// newSeed draws a random 32-bit seed, falling back to the math/rand source
// when the system source is unavailable.
func newSeed() uint32 {
	var buf [4]byte
	if _, errRead := rand.Read(buf[:]); errRead == nil {
		return binary.LittleEndian.Uint32(buf[:])
	}
	return mathrand.Uint32()
}

// mulberry32 is a small deterministic PRNG yielding floats in [0, 1).
func mulberry32(state uint32) func() float64 {
	return func() float64 {
		state += 0x6D2B79F5
		t := state
		t = (t ^ (t >> 15)) * (t | 1)
		t ^= t + (t^(t>>7))*(t|61)
		return float64(t^(t>>14)) / 4294967296
	}
}

// shuffleOptions is a Fisher-Yates pass driven by rng. The input slice is
// not modified.
func shuffleOptions(options []Option, rng func() float64) []Option {
	shuffled := make([]Option, len(options))
	copy(shuffled, options)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := int(rng() * float64(i+1))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
