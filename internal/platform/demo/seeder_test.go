package demo

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSeeder_NormalizesDomain(t *testing.T) {
	s := NewSeeder(nil, " Demo.Example ", zerolog.Nop())
	assert.Equal(t, "demo.example", s.domain)
	assert.Equal(t, "%@demo.example", s.emailPattern())

	// Seed builds its generator from the normalized domain.
	b := NewGenerator(3, s.domain, testNow).Generate(uuid.New(), testProfile())
	for _, p := range b.Patients {
		assert.Equal(t, strings.ToLower(p.Email), p.Email)
		assert.True(t, strings.HasSuffix(p.Email, "@demo.example"), p.Email)
	}
}

func TestSeeder_EmailPatternEscapesWildcards(t *testing.T) {
	s := NewSeeder(nil, "demo_site%.test", zerolog.Nop())
	assert.Equal(t, `%@demo\_site\%.test`, s.emailPattern())
}
