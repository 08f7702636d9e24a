// Package rendering turns a resume document into LaTeX and compiles it to PDF.
package rendering

import "strings"

// latexRunes maps runes that cannot appear verbatim in LaTeX body text to
// their input sequences. Typographic punctuation pasted from word processors
// is folded to the ASCII ligature forms.
var latexRunes = map[rune]string{
	'\\': `\textbackslash{}`,
	'{':  `\{`,
	'}':  `\}`,
	'$':  `\$`,
	'&':  `\&`,
	'%':  `\%`,
	'#':  `\#`,
	'_':  `\_`,
	'^':  `\textasciicircum{}`,
	'~':  `\textasciitilde{}`,

	'\u2014': "---",
	'\u2013': "--",
	'\u2018': "`",
	'\u2019': "'",
	'\u201C': "``",
	'\u201D': "''",
	'\u2026': `\ldots{}`,
	'\u00A0': "~",
	'\u2022': `\textbullet{}`,
}

// EscapeLaTeX makes text safe for LaTeX body content.
func EscapeLaTeX(text string) string {
	if !strings.ContainsFunc(text, func(r rune) bool { _, ok := latexRunes[r]; return ok }) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(text)/2)
	for _, r := range text {
		if sub, ok := latexRunes[r]; ok {
			b.WriteString(sub)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var urlEscaper = strings.NewReplacer(`\`, ``, `%`, `\%`, `#`, `\#`, `{`, `%7B`, `}`, `%7D`)

// EscapeURL escapes only the characters that break an \href target.
func EscapeURL(u string) string {
	return urlEscaper.Replace(u)
}
