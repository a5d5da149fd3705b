package keywords

// RulesConfig is the top-level structure of keywords.yaml: a list of
// domain patterns, each carrying seed sub-category keyword rules.
type RulesConfig []DomainRules

// DomainRules declares the default rules for one domain pattern.
// Patterns are exact domains or "*.example.com" wildcards.
type DomainRules struct {
	Domain string      `yaml:"domain"`
	Rules  []RuleProps `yaml:"rules"`
}

// RuleProps defines one sub-category and its keywords.
type RuleProps struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}
