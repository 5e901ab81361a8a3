package runner

import (
	"strings"
	"testing"

	"github.com/projectdiscovery/subnoise"
	"github.com/stretchr/testify/require"
)

func TestParseDomains(t *testing.T) {
	in := `
# domain project
a.b.example.com p1
c.d.example.com,p1
  mail.example.org	p2
`
	domains, err := parseDomains(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []subnoise.Domain{
		{Name: "a.b.example.com", ProjectID: "p1"},
		{Name: "c.d.example.com", ProjectID: "p1"},
		{Name: "mail.example.org", ProjectID: "p2"},
	}, domains)
}

func TestParseDomainsInvalidLine(t *testing.T) {
	_, err := parseDomains(strings.NewReader("a.b.example.com p1\nbroken.example.com\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}
