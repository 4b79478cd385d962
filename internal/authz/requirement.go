package authz

import "strings"

// Requirement is one (resource, action) pair of a route's declared
// permission disjunction.
type Requirement struct {
	Resource string
	Action   string
}

// ParseRequirement parses a "resource+action" string. The second return
// value is false for anything that does not split into two non-empty halves.
func ParseRequirement(s string) (Requirement, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), Separator, 2)
	if len(parts) != 2 {
		return Requirement{}, false
	}
	resource := strings.ToLower(strings.TrimSpace(parts[0]))
	action := strings.ToLower(strings.TrimSpace(parts[1]))
	if resource == "" || action == "" {
		return Requirement{}, false
	}
	return Requirement{Resource: resource, Action: action}, true
}

// ParseRequirements parses a requirement list, skipping malformed entries.
// A malformed entry is not fatal: the remaining pairs still form the
// disjunction.
func ParseRequirements(list []string) []Requirement {
	reqs := make([]Requirement, 0, len(list))
	for _, s := range list {
		if req, ok := ParseRequirement(s); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}
