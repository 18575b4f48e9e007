package dbgap

import (
	"regexp"
	"strings"
)

// Study-config documents are only quasi-XML: description payloads embed raw
// HTML that breaks a strict decoder, so named elements are pulled out with
// patterns instead of encoding/xml.

// ExtractElement returns the trimmed content of the first <element> in the
// document, preferring a CDATA payload over plain text when both forms are
// present. Absent and empty-content elements both report false. The open
// tag must end right after the name or continue with attributes, so
// "StudyType" never matches a "StudyTypes" wrapper.
func ExtractElement(doc, element string) (string, bool) {
	name := regexp.QuoteMeta(element)

	cdata := regexp.MustCompile(`(?s)<` + name + `(?:\s[^>]*)?>\s*<!\[CDATA\[(.*?)\]\]>\s*</` + name + `>`)
	if m := cdata.FindStringSubmatch(doc); m != nil {
		if text := strings.TrimSpace(m[1]); text != "" {
			return text, true
		}
		return "", false
	}

	plain := regexp.MustCompile(`(?s)<` + name + `(?:\s[^>]*)?>(.*?)</` + name + `>`)
	if m := plain.FindStringSubmatch(doc); m != nil {
		if text := strings.TrimSpace(m[1]); text != "" {
			return text, true
		}
	}
	return "", false
}

// ExtractElements returns the trimmed contents of every <element>
// occurrence, skipping empty ones.
func ExtractElements(doc, element string) []string {
	name := regexp.QuoteMeta(element)
	re := regexp.MustCompile(`(?s)<` + name + `(?:\s[^>]*)?>(.*?)</` + name + `>`)

	matches := re.FindAllStringSubmatch(doc, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if text := strings.TrimSpace(m[1]); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// ExtractAttr returns the value of an attribute on the first <element>
// occurrence carrying it.
func ExtractAttr(doc, element, attr string) (string, bool) {
	re := regexp.MustCompile(`<` + regexp.QuoteMeta(element) + `\s[^>]*?\b` + regexp.QuoteMeta(attr) + `="([^"]*)"`)
	if m := re.FindStringSubmatch(doc); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}
