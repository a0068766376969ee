package config

import (
	"slices"
	"unicode"
	"unicode/utf8"
)

// EmptyLabel returns the label printed for an empty desktop.
func (p *PrintInfo) EmptyLabel() string {
	if p.LabelEmpty != nil {
		return *p.LabelEmpty
	}
	return DefaultEmptyLabel
}

// Format applies capitalization and substitution rules registered for typ,
// then truncates the result to MaxLen characters.
func (p *PrintInfo) Format(info string, typ InfoType) string {
	formatted := info
	if slices.Contains(p.CapitalizeFirst, typ) {
		formatted = capitalizeFirst(formatted)
	}
	if rules, ok := p.SubstituteRules[string(typ)]; ok {
		if replacement, ok := rules[formatted]; ok {
			formatted = replacement
		}
	}
	return p.truncate(formatted)
}

func (p *PrintInfo) truncate(s string) string {
	if p.MaxLen <= 0 || utf8.RuneCountInString(s) <= p.MaxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:p.MaxLen])
}

// WindowLine is the stdout line for a focused window.
func (c *Config) WindowLine(info string, typ InfoType) string {
	return c.Gap + c.PrintInfo.Format(info, typ)
}

// EmptyLine is the stdout line for an empty desktop.
func (c *Config) EmptyLine() string {
	return c.Gap + c.PrintInfo.truncate(c.PrintInfo.EmptyLabel())
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
