package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"capresolve/internal/ports"
	"capresolve/internal/resource"
	"capresolve/internal/types"
)

// IdentityPolicy allows or denies candidate resources by identity name.
// Rules are tried in order and the first matching rule decides; a name no
// rule matches is allowed.
type IdentityPolicy struct {
	Rules          []types.PolicyRule
	exactByType    map[string]map[string]int
	exactAny       map[string]int
	prefixByType   map[string][]prefixPattern
	prefixAny      []prefixPattern
	wildcardByType map[string]int
	wildcardAny    int
}

var _ ports.ResolverHook = IdentityPolicy{}

func NewIdentityPolicy(rules []types.PolicyRule) (IdentityPolicy, error) {
	policy := IdentityPolicy{wildcardAny: -1}
	for _, rule := range rules {
		switch types.PolicyAction(strings.ToLower(string(rule.Action))) {
		case types.PolicyActionAllow, types.PolicyActionDeny:
		default:
			return IdentityPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown policy action %q for pattern %q", rule.Action, rule.Pattern))
		}
		if _, ok := parsePattern(rule.Pattern); !ok {
			return IdentityPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid policy pattern %q", rule.Pattern))
		}
		policy.Rules = append(policy.Rules, rule)
	}
	policy.compile()
	return policy, nil
}

// Decide returns the action for an identity of the given type and name.
func (p IdentityPolicy) Decide(identityType, name string) types.PolicyAction {
	best := -1
	if matches, ok := p.exactByType[identityType]; ok {
		if idx, found := matches[name]; found {
			best = minIndex(best, idx)
		}
	}
	if idx, found := p.exactAny[name]; found {
		best = minIndex(best, idx)
	}
	for _, entry := range p.prefixByType[identityType] {
		if strings.HasPrefix(name, entry.prefix) {
			best = minIndex(best, entry.ruleIndex)
		}
	}
	for _, entry := range p.prefixAny {
		if strings.HasPrefix(name, entry.prefix) {
			best = minIndex(best, entry.ruleIndex)
		}
	}
	if idx, found := p.wildcardByType[identityType]; found {
		best = minIndex(best, idx)
	}
	if p.wildcardAny >= 0 {
		best = minIndex(best, p.wildcardAny)
	}
	if best >= 0 && best < len(p.Rules) {
		return types.PolicyAction(strings.ToLower(string(p.Rules[best].Action)))
	}
	return types.PolicyActionAllow
}

// FilterMatches drops candidates whose resource identity is denied.
// Candidates without an identity are kept.
func (p IdentityPolicy) FilterMatches(_ *resource.Requirement, candidates []*resource.Capability) []*resource.Capability {
	if len(p.Rules) == 0 {
		return candidates
	}
	out := make([]*resource.Capability, 0, len(candidates))
	for _, c := range candidates {
		if r := c.Resource(); r != nil {
			if id, ok := r.Identity(); ok && p.Decide(id.Type, id.Name) == types.PolicyActionDeny {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

type prefixPattern struct {
	prefix    string
	ruleIndex int
}

type parsedPattern struct {
	identityType string
	kind         patternKind
	name         string
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternWildcard
	patternInvalid
)

func (p *IdentityPolicy) compile() {
	p.exactByType = map[string]map[string]int{}
	p.exactAny = map[string]int{}
	p.prefixByType = map[string][]prefixPattern{}
	p.prefixAny = nil
	p.wildcardByType = map[string]int{}
	p.wildcardAny = -1
	for idx, rule := range p.Rules {
		parsed, ok := parsePattern(rule.Pattern)
		if !ok {
			continue
		}
		switch parsed.kind {
		case patternWildcard:
			p.storeWildcard(parsed.identityType, idx)
		case patternExact:
			p.storeExact(parsed.identityType, parsed.name, idx)
		case patternPrefix:
			p.storePrefix(parsed.identityType, parsed.name, idx)
		}
	}
}

func (p *IdentityPolicy) storeExact(identityType, name string, index int) {
	if identityType == "" {
		if _, ok := p.exactAny[name]; !ok {
			p.exactAny[name] = index
		}
		return
	}
	if p.exactByType[identityType] == nil {
		p.exactByType[identityType] = map[string]int{}
	}
	if _, ok := p.exactByType[identityType][name]; !ok {
		p.exactByType[identityType][name] = index
	}
}

func (p *IdentityPolicy) storePrefix(identityType, prefix string, index int) {
	entry := prefixPattern{prefix: prefix, ruleIndex: index}
	if identityType == "" {
		p.prefixAny = append(p.prefixAny, entry)
		return
	}
	p.prefixByType[identityType] = append(p.prefixByType[identityType], entry)
}

func (p *IdentityPolicy) storeWildcard(identityType string, index int) {
	if identityType == "" {
		if p.wildcardAny < 0 {
			p.wildcardAny = index
		}
		return
	}
	if _, ok := p.wildcardByType[identityType]; !ok {
		p.wildcardByType[identityType] = index
	}
}

// parsePattern reads "name", "prefix*" or "*", optionally qualified by an
// identity type as in "fragment:com.example.*".
func parsePattern(pattern string) (parsedPattern, bool) {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" {
		return parsedPattern{kind: patternInvalid}, false
	}
	if trimmed == "*" {
		return parsedPattern{kind: patternWildcard}, true
	}
	if qualifier, rest, found := strings.Cut(trimmed, ":"); found {
		identityType, ok := parseIdentityType(qualifier)
		if !ok {
			return parsedPattern{kind: patternInvalid}, false
		}
		name, kind := parseNamePattern(rest)
		if kind == patternInvalid {
			return parsedPattern{kind: patternInvalid}, false
		}
		return parsedPattern{identityType: identityType, kind: kind, name: name}, true
	}
	name, kind := parseNamePattern(trimmed)
	if kind == patternInvalid {
		return parsedPattern{kind: patternInvalid}, false
	}
	return parsedPattern{kind: kind, name: name}, true
}

func parseIdentityType(token string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "bundle", types.IdentityTypeBundle:
		return types.IdentityTypeBundle, true
	case "fragment", types.IdentityTypeFragment:
		return types.IdentityTypeFragment, true
	case "apt", "deb":
		return string(types.DependencyTypeApt), true
	case "pip", "python":
		return string(types.DependencyTypePip), true
	default:
		return "", false
	}
}

func parseNamePattern(value string) (string, patternKind) {
	pattern := strings.TrimSpace(value)
	if pattern == "" {
		return "", patternInvalid
	}
	if pattern == "*" {
		return "", patternWildcard
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.TrimSuffix(pattern, "*"), patternPrefix
	}
	return pattern, patternExact
}

func minIndex(current int, candidate int) int {
	if candidate < 0 {
		return current
	}
	if current < 0 || candidate < current {
		return candidate
	}
	return current
}
