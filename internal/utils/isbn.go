package utils

import "strings"

// NormalizeISBN strips separators and noise from a raw ISBN string, keeping
// digits and a trailing check character X.
// Example: "978-0-15-602760-1" -> "9780156027601"
func NormalizeISBN(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	s := b.String()
	if len(s) != 10 && len(s) != 13 {
		return ""
	}
	// X is only valid as the ISBN-10 check character.
	if i := strings.IndexByte(s, 'X'); i >= 0 && (len(s) != 10 || i != 9) {
		return ""
	}
	return s
}

// ISBN10To13 converts a normalized ISBN-10 to its ISBN-13 form.
func ISBN10To13(isbn10 string) string {
	if len(isbn10) != 10 {
		return ""
	}
	core := "978" + isbn10[:9]
	return core + string(rune('0'+isbn13CheckDigit(core)))
}

// ISBN13To10 converts a normalized 978-prefixed ISBN-13 to its ISBN-10 form.
// ISBNs under other prefixes have no ISBN-10 equivalent.
func ISBN13To10(isbn13 string) string {
	if len(isbn13) != 13 || !strings.HasPrefix(isbn13, "978") {
		return ""
	}
	core := isbn13[3:12]
	check := isbn10CheckDigit(core)
	if check == 10 {
		return core + "X"
	}
	return core + string(rune('0'+check))
}

// ISBNVariants normalizes the given raw ISBNs and expands each to both its
// 10 and 13 digit forms, deduplicated, longest first.
func ISBNVariants(raws ...string) []string {
	seen := make(map[string]bool)
	var long, short []string

	add := func(isbn string) {
		if isbn == "" || seen[isbn] {
			return
		}
		seen[isbn] = true
		if len(isbn) == 13 {
			long = append(long, isbn)
		} else {
			short = append(short, isbn)
		}
	}

	for _, raw := range raws {
		isbn := NormalizeISBN(raw)
		if isbn == "" {
			continue
		}
		add(isbn)
		switch len(isbn) {
		case 10:
			add(ISBN10To13(isbn))
		case 13:
			add(ISBN13To10(isbn))
		}
	}

	return append(long, short...)
}

func isbn13CheckDigit(core string) int {
	sum := 0
	for i, r := range core {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

func isbn10CheckDigit(core string) int {
	sum := 0
	for i, r := range core {
		sum += (10 - i) * int(r-'0')
	}
	return (11 - sum%11) % 11
}
