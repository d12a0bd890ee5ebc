// Package txid generates and validates requisition transaction IDs of the form
// PREFIX-YYYYMMDD-<epoch millis>-<6 base36 chars>.
package txid

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultPrefix = "QR"
	suffixLen     = 6
	base36        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	redacted      = "***"
)

// Only the QR family validates. IDs minted with another prefix (e.g. PR) do not.
var pattern = regexp.MustCompile(`^QR-\d{8}-\d{13}-[A-Z0-9]{6}$`)

// Generator mints transaction IDs from a clock and a random source.
type Generator struct {
	mu   sync.Mutex
	now  func() time.Time
	rand *rand.Rand
}

// NewGenerator returns a Generator. A nil clock or source falls back to
// time.Now and a randomly seeded PCG source.
func NewGenerator(now func() time.Time, src rand.Source) *Generator {
	if now == nil {
		now = time.Now
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{now: now, rand: rand.New(src)}
}

var defaultGenerator = NewGenerator(nil, nil)

// Generate returns a new ID using the package default generator.
func Generate(prefix string) string {
	return defaultGenerator.Generate(prefix)
}

// Generate returns "{PREFIX}-{YYYYMMDD}-{epochMillis}-{SUFFIX}".
func (g *Generator) Generate(prefix string) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}

	g.mu.Lock()
	now := g.now()
	var suffix [suffixLen]byte
	for i := range suffix {
		suffix[i] = base36[g.rand.IntN(len(base36))]
	}
	g.mu.Unlock()

	var b strings.Builder
	b.Grow(len(prefix) + 32)
	b.WriteString(prefix)
	b.WriteByte('-')
	b.WriteString(now.Format("20060102"))
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('-')
	b.Write(suffix[:])
	return b.String()
}

// Validate reports whether id is a well-formed QR transaction ID.
func Validate(id string) bool {
	return pattern.MatchString(id)
}

// Format redacts the timestamp field for display. Input that does not have the
// four dash-separated fields is returned unchanged.
func Format(id string) string {
	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		return id
	}
	parts[2] = redacted
	return strings.Join(parts, "-")
}
