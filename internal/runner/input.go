package runner

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/projectdiscovery/subnoise"
)

// parseDomains reads "domain project_id" pairs, one per line.
// Fields may be separated by whitespace or a comma; blank lines and
// lines starting with # are skipped.
func parseDomains(r io.Reader) ([]subnoise.Domain, error) {
	var domains []subnoise.Domain
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"domain project_id\", got %q", line, text)
		}
		domains = append(domains, subnoise.Domain{Name: fields[0], ProjectID: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return domains, nil
}
