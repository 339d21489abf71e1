// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/pdiddy/snowball/pkg/types"
)

// BibTeX writes the papers as @article entries. Citation keys are built
// from the first author's last name and year, suffixed on collision.
func BibTeX(w io.Writer, papers []*types.Paper) error {
	used := make(map[string]int)
	for _, p := range papers {
		key := bibKey(p)
		if n := used[key]; n > 0 {
			used[key] = n + 1
			key = fmt.Sprintf("%s-%d", key, n)
		} else {
			used[key] = 1
		}

		if _, err := fmt.Fprintf(w, "@article{%s,\n", key); err != nil {
			return err
		}
		writeField(w, "title", p.Title)
		if len(p.Authors) > 0 {
			names := make([]string, len(p.Authors))
			for i, a := range p.Authors {
				names[i] = a.Name
			}
			writeField(w, "author", strings.Join(names, " and "))
		}
		if p.Year != 0 {
			writeField(w, "year", fmt.Sprintf("%d", p.Year))
		}
		if p.Venue != "" {
			writeField(w, "journal", p.Venue)
		}
		if doi := p.SourceIDs[types.IDSchemeDOI]; doi != "" {
			writeField(w, "doi", doi)
		}
		if _, err := fmt.Fprintln(w, "}"); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeField(w io.Writer, name, value string) {
	value = strings.ReplaceAll(value, "{", "")
	value = strings.ReplaceAll(value, "}", "")
	fmt.Fprintf(w, "  %s = {%s},\n", name, value)
}

func bibKey(p *types.Paper) string {
	name := "unknown"
	if len(p.Authors) > 0 {
		parts := strings.Fields(p.Authors[0].Name)
		if len(parts) > 0 {
			name = parts[len(parts)-1]
		}
	}
	key := strings.ToLower(name)
	if p.Year != 0 {
		key = fmt.Sprintf("%s%d", key, p.Year)
	}
	var b strings.Builder
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return p.CanonicalID
	}
	return b.String()
}
