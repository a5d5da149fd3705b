package keywords

import (
	"strings"
	"sync"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
)

// Pack is the in-memory view of the loaded keyword rules. It is swapped
// atomically on reload and consulted when a DomainGroup is created for a
// domain that has no surviving category configuration.
type Pack struct {
	mu    sync.RWMutex
	rules []DomainRules
}

// NewPack creates an empty pack.
func NewPack() *Pack {
	return &Pack{}
}

// Update replaces the pack contents.
func (p *Pack) Update(config RulesConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = config
}

// Count returns the number of loaded domain patterns.
func (p *Pack) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rules)
}

// RulesFor returns the seed keyword rules for a domain, matching exact
// patterns first, then "*.suffix" wildcards. Nil when nothing matches.
func (p *Pack) RulesFor(dom string) []domain.KeywordRule {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var wildcard *DomainRules
	for i := range p.rules {
		pattern := p.rules[i].Domain
		if pattern == dom {
			return mapRules(p.rules[i].Rules)
		}
		if wildcard == nil && matchWildcard(dom, pattern) {
			wildcard = &p.rules[i]
		}
	}
	if wildcard != nil {
		return mapRules(wildcard.Rules)
	}
	return nil
}

// matchWildcard checks "*.example.com" style patterns. The bare apex
// ("example.com") does not match its own wildcard.
func matchWildcard(dom, pattern string) bool {
	if !strings.HasPrefix(pattern, "*.") {
		return false
	}
	return strings.HasSuffix(dom, pattern[1:])
}

func mapRules(props []RuleProps) []domain.KeywordRule {
	rules := make([]domain.KeywordRule, 0, len(props))
	for _, rp := range props {
		if rp.Name == "" || len(rp.Keywords) == 0 {
			continue
		}
		rules = append(rules, domain.KeywordRule{
			CategoryName: rp.Name,
			Keywords:     rp.Keywords,
		})
	}
	return rules
}
