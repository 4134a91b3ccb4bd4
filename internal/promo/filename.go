package promo

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const defaultProductName = "pajangan"

// Filename suggests the download name for the result at the 0-based index.
func Filename(product string, index int) string {
	return fmt.Sprintf("%s-promoshot-%d.png", slug(product), index+1)
}

// ArchiveName is the download name for all results of product as one zip.
func ArchiveName(product string) string {
	return slug(product) + "-promoshot.zip"
}

func Filenames(product string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = Filename(product, i)
	}
	return out
}

// slug lowercases s, folds accents ("Kéramik" becomes "keramik") and joins
// the remaining letter and digit runs with dashes.
func slug(s string) string {
	folded, _, err := transform.String(foldAccents(), strings.TrimSpace(s))
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range cases.Lower(language.Und).String(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return defaultProductName
	}
	return out
}

func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
