package subnoise

import "fmt"

// MajorityCluster returns the domains belonging to the most populated cluster
// along with its label. When several clusters share the maximum size the one
// with the smallest label wins. Output order follows input order.
func MajorityCluster(labels []int, domains []string) ([]string, int, error) {
	if len(labels) != len(domains) {
		return nil, 0, fmt.Errorf("got %d cluster labels for %d domains", len(labels), len(domains))
	}
	if len(labels) == 0 {
		return []string{}, 0, nil
	}

	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	best, bestCount := 0, -1
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < best) {
			best, bestCount = label, count
		}
	}

	noise := make([]string, 0, bestCount)
	for i, domain := range domains {
		if labels[i] == best {
			noise = append(noise, domain)
		}
	}
	return noise, best, nil
}
