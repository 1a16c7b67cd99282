// Package title turns messy ROM-dump entry names into display titles and
// storage keys. The display normalizer and the slug normalizer are kept
// separate on purpose: one produces proper-cased readable text, the other a
// filesystem-/URL-safe key, and the two goals conflict.
package title

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

var (
	romExtRegexp     = regexp.MustCompile(`(?i)\.(nsp|xci|nsz|rar|zip|7z)$`)
	partArchiveRegex = regexp.MustCompile(`(?i)\.part\d+\.(rar|zip)$`)
	bracketRegexp    = regexp.MustCompile(`\s*[(\[{].*?[)\]}]\s*`)
	punctRegexp      = regexp.MustCompile(`[-_.]+`)
	spaceRegexp      = regexp.MustCompile(`\s+`)

	// Scene/region/version tokens stripped as whole words.
	tagRegexps = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bBase[- ]?Game\b`),
		regexp.MustCompile(`(?i)\b(?:Full[- ])?Game\b`),
		regexp.MustCompile(`(?i)\b(?:eShop|NSP|XCI|NSZ)\b`),
		regexp.MustCompile(`(?i)\b(?:ROMSLAB|FitGirl|Scene|Repack)\b`),
		regexp.MustCompile(`(?i)\bUpdate\b`),
		regexp.MustCompile(`(?i)\bDX\b`),
		regexp.MustCompile(`(?i)\bDefinitive[- ]?Edition\b`),
		regexp.MustCompile(`(?i)\bGOTY\b`),
		regexp.MustCompile(`(?i)\bSwitch\b`),
		regexp.MustCompile(`(?i)\b(?:EU|US|JP|Asia)\b`),
		regexp.MustCompile(`(?i)\brev\b`),
		regexp.MustCompile(`(?i)\bpatch\b`),
		regexp.MustCompile(`(?i)\bDLC\b`),
		regexp.MustCompile(`(?i)\bv\d+\.\d+(?:\.\d+)?\b`),
	}

	filenameBadRegexp = regexp.MustCompile(`[<>:"/\\|?*]`)
	slugDropRegexp    = regexp.MustCompile(`[^a-z0-9 _]+`)
)

// Display normalizes a raw folder or file name into a display title.
// Handles patterns like:
//   - 13-Sentinels-Aegis-Rim-Base-Game-Switch-NSP
//   - Animal Crossing - New Horizons [FitGirl Repack]
//   - ATELIER-ESCHA-AND-LOGY-ALCHEMISTS-OF-THE-DUSK-SKY-DX-NSP-ROMSLAB
//
// If cleaning would leave nothing, the raw input is returned unchanged so a
// game is never recorded with a blank title.
func Display(raw string) string {
	if raw == "" {
		return raw
	}

	cleaned := strings.TrimSpace(raw)

	// Multi-part archive suffixes first, otherwise stripping the plain
	// extension leaves a dangling ".partN".
	cleaned = partArchiveRegex.ReplaceAllString(cleaned, "")
	cleaned = romExtRegexp.ReplaceAllString(cleaned, "")

	// Bracketed runs carry scene/repack/version tags.
	cleaned = bracketRegexp.ReplaceAllString(cleaned, " ")

	for _, tag := range tagRegexps {
		cleaned = tag.ReplaceAllString(cleaned, "")
	}

	// Hyphens, underscores and dots become spaces; internal punctuation
	// such as apostrophes or colons survives.
	cleaned = punctRegexp.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(spaceRegexp.ReplaceAllString(cleaned, " "))

	cleaned = capitalizeWords(cleaned)

	if cleaned == "" {
		return raw
	}
	return cleaned
}

// Slug converts a title into a storage key: lowercase, [a-z0-9_] only,
// whitespace collapsed to single underscores. CJK runes are transliterated
// to pinyin first so an all-CJK title still yields a usable key.
func Slug(title string) string {
	s := strings.ToLower(transliterate(title))
	s = slugDropRegexp.ReplaceAllString(s, "")
	s = spaceRegexp.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, "_")
}

// SanitizeFilename makes a title safe as a media file name. Unlike Slug it
// keeps unicode letters, only swapping path-hostile characters.
func SanitizeFilename(title string) string {
	safe := filenameBadRegexp.ReplaceAllString(strings.TrimSpace(title), "_")
	safe = spaceRegexp.ReplaceAllString(safe, "_")
	safe = strings.Trim(safe, "_")
	safe = strings.ToLower(safe)
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	runes := []rune(strings.ToLower(w))
	if len(runes) == 0 {
		return w
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func transliterate(s string) string {
	hasHan := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			hasHan = true
			break
		}
	}
	if !hasHan {
		return s
	}

	args := pinyin.NewArgs()
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			if ps := pinyin.SinglePinyin(r, args); len(ps) > 0 {
				b.WriteByte(' ')
				b.WriteString(ps[0])
				b.WriteByte(' ')
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
