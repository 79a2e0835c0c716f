package workflow

import (
	"strconv"
	"strings"

	"github.com/vango-dev/uiforge/internal/ident"
)

// VariantsSuffix is appended to a composed name whose base is taken.
const VariantsSuffix = "-variants"

// DeriveName returns the id of a super component wrapping ids.
//
// The base is the namespace followed by the words every id shares, in the
// order of the first id; with no shared word it is the first id. When taken
// reports the base as used, "-variants" is appended, then "-variants-2",
// "-variants-3" and so on until a free name is found.
//
//	DeriveName([]string{"secondary-button", "secondary-outline-button"}, taken)
//	// "app-secondary-button", or "app-secondary-button-variants" if taken
func DeriveName(ids []string, taken func(string) bool) string {
	if len(ids) == 0 {
		return ""
	}

	common := commonWords(ids)
	if len(common) == 0 {
		common = ident.Words(ids[0])
	}
	base := ident.Namespace + "-" + strings.Join(common, "-")

	if !taken(base) {
		return base
	}
	name := base + VariantsSuffix
	for n := 2; taken(name); n++ {
		name = base + VariantsSuffix + "-" + strconv.Itoa(n)
	}
	return name
}

func commonWords(ids []string) []string {
	sets := make([]map[string]bool, len(ids)-1)
	for i, id := range ids[1:] {
		sets[i] = make(map[string]bool)
		for _, w := range ident.Words(id) {
			sets[i][w] = true
		}
	}

	var out []string
	for _, w := range ident.Words(ids[0]) {
		shared := true
		for _, set := range sets {
			if !set[w] {
				shared = false
				break
			}
		}
		if shared {
			out = append(out, w)
		}
	}
	return out
}
