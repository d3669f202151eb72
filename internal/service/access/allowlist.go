package access

import (
	"sort"

	"github.com/equihome/launchpad/internal/domain"
)

// Grant is one allowlist entry: an email and the resource types it may
// view without going through the request flow.
type Grant struct {
	Email     string               `json:"email"`
	Resources []domain.RequestType `json:"resources"`
}

// Allowlist is an immutable set of grants built once at startup.
// A nil *Allowlist allows nothing.
type Allowlist struct {
	grants map[string]map[domain.RequestType]struct{}
}

// NewAllowlist validates and indexes grants. An entry with no resources
// grants every resource type.
func NewAllowlist(grants []Grant) (*Allowlist, error) {
	a := &Allowlist{grants: make(map[string]map[domain.RequestType]struct{}, len(grants))}
	for _, g := range grants {
		email := domain.NormalizeEmail(g.Email)
		if email == "" {
			return nil, ErrInvalidGrant
		}
		resources := g.Resources
		if len(resources) == 0 {
			resources = domain.RequestTypes
		}
		set, ok := a.grants[email]
		if !ok {
			set = make(map[domain.RequestType]struct{}, len(resources))
			a.grants[email] = set
		}
		for _, rt := range resources {
			parsed, err := domain.ParseRequestType(string(rt))
			if err != nil {
				return nil, err
			}
			set[parsed] = struct{}{}
		}
	}
	return a, nil
}

// Allows reports whether email is allowlisted for rt. It performs no I/O.
func (a *Allowlist) Allows(email string, rt domain.RequestType) bool {
	if a == nil {
		return false
	}
	set, ok := a.grants[domain.NormalizeEmail(email)]
	if !ok {
		return false
	}
	_, ok = set[rt]
	return ok
}

// Grants returns a sorted copy of the allowlist with resources expanded.
func (a *Allowlist) Grants() []Grant {
	if a == nil {
		return []Grant{}
	}
	out := make([]Grant, 0, len(a.grants))
	for email, set := range a.grants {
		g := Grant{Email: email}
		for _, rt := range domain.RequestTypes {
			if _, ok := set[rt]; ok {
				g.Resources = append(g.Resources, rt)
			}
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// Len returns the number of allowlisted emails.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.grants)
}
