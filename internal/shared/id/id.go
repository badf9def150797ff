// Package id generates prefixed ULIDs for script runs and bridge connections.
//
// ULIDs sort by creation time, so run ids double as a timeline in logs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunID identifies one script run.
type RunID string

// ConnID identifies a websocket bridge connection.
type ConnID string

// SendID identifies a request sent from inside a script.
type SendID string

const (
	RunPrefix  = "run"
	ConnPrefix = "conn"
	SendPrefix = "send"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

func NewRunID() RunID {
	return RunID(Default().GenerateWithPrefix(RunPrefix))
}

func NewConnID() ConnID {
	return ConnID(Default().GenerateWithPrefix(ConnPrefix))
}

func NewSendID() SendID {
	return SendID(Default().GenerateWithPrefix(SendPrefix))
}

func (id RunID) String() string  { return string(id) }
func (id ConnID) String() string { return string(id) }
func (id SendID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string, with or without a prefix.
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.Parse(id)
}

// Timestamp extracts the creation time from a ULID, with or without a prefix.
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
