package subnoise

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRule(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"b.example.com", ".*b.example.com"},
		{"a.b.example.com", ".*b.example.com"},
		{"x.y.z.cdn.example.com", ".*cdn.example.com"},
		// metacharacters are not escaped
		{"x.b*.example.com", ".*b*.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			got, err := GenerateRule(tt.domain)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateRuleTail(t *testing.T) {
	for _, domain := range []string{"a.b.c", "one.two.three.four", "p.q.r.s.t.u.v"} {
		labels := strings.Split(domain, ".")
		k := len(labels)
		want := ".*" + labels[k-3] + "." + labels[k-2] + "." + labels[k-1]
		got, err := GenerateRule(domain)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestGenerateRuleMatchesSiblings(t *testing.T) {
	pattern, err := GenerateRule("node1.b.example.com")
	require.NoError(t, err)
	re := regexp.MustCompile(pattern)
	assert.True(t, re.MatchString("node2.b.example.com"))
	assert.True(t, re.MatchString("x.y.b.example.com"))
	assert.False(t, re.MatchString("node1.c.example.com"))
}

func TestGenerateRuleErrors(t *testing.T) {
	for _, domain := range []string{"", "example.com", "localhost"} {
		_, err := GenerateRule(domain)
		var perr *PatternGenerationError
		require.True(t, errors.As(err, &perr), domain)
		require.Equal(t, domain, perr.Domain)
	}
}

func TestRuleGeneratorTemplate(t *testing.T) {
	g, err := NewRuleGenerator("^.*{{tail}}$")
	require.NoError(t, err)
	got, err := g.Generate("a.b.example.com")
	require.NoError(t, err)
	require.Equal(t, "^.*b.example.com$", got)

	g, err = NewRuleGenerator("^{{domain}}$")
	require.NoError(t, err)
	got, err = g.Generate("a.b.example.com")
	require.NoError(t, err)
	require.Equal(t, "^a.b.example.com$", got)

	g, err = NewRuleGenerator("")
	require.NoError(t, err)
	got, err = g.Generate("a.b.example.com")
	require.NoError(t, err)
	require.Equal(t, ".*b.example.com", got)
}

func TestCoversRegistrableDomain(t *testing.T) {
	assert.True(t, coversRegistrableDomain("example.co.uk"))
	assert.False(t, coversRegistrableDomain("b.example.com"))
}
