package redact

import "regexp"

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Redactor masks personal details in event payloads before they leave the
// service. A nil Redactor passes data through unchanged.
type Redactor struct {
	rules []compiledRule
}

func NewRedactor(cfg RulesConfig) (*Redactor, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Redactor{rules: compiled}, nil
}

// Scrub returns a masked copy of the payload. Nested maps and slices are
// walked; non-string leaves pass through untouched.
func (r *Redactor) Scrub(data map[string]interface{}) map[string]interface{} {
	if r == nil {
		return data
	}

	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		out[key] = r.scrubValue(value)
	}
	return out
}

// ScrubText masks a single string.
func (r *Redactor) ScrubText(text string) string {
	if r == nil {
		return text
	}
	masked := text
	for _, rule := range r.rules {
		masked = rule.re.ReplaceAllString(masked, rule.rule.Mask)
	}
	return masked
}

func (r *Redactor) scrubValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return r.ScrubText(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, nested := range v {
			out[k] = r.scrubValue(nested)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = r.scrubValue(nested)
		}
		return out
	case []string:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = r.ScrubText(nested)
		}
		return out
	default:
		return value
	}
}
