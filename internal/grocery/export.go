package grocery

import (
	"fmt"
	"sort"
	"strings"
)

const defaultEmoji = "🛒"

// categoryEmoji decorates export headers. Keys are lower case.
var categoryEmoji = map[string]string{
	"dairy":         "🥛",
	"lácteos":       "🥛",
	"fruit":         "🍎",
	"fruits":        "🍎",
	"frutas":        "🍎",
	"vegetables":    "🥦",
	"verduras":      "🥦",
	"produce":       "🥬",
	"bakery":        "🍞",
	"panadería":     "🍞",
	"meat":          "🥩",
	"carne":         "🥩",
	"fish":          "🐟",
	"seafood":       "🐟",
	"pescado":       "🐟",
	"frozen":        "🧊",
	"congelados":    "🧊",
	"drinks":        "🥤",
	"beverages":     "🥤",
	"bebidas":       "🥤",
	"pantry":        "🥫",
	"despensa":      "🥫",
	"snacks":        "🍪",
	"cleaning":      "🧽",
	"limpieza":      "🧽",
	"household":     "🏠",
	"personal care": "🧴",
	"higiene":       "🧴",
}

// CategoryEmoji returns the header decoration for a category.
func CategoryEmoji(category string) string {
	if e, ok := categoryEmoji[strings.ToLower(strings.TrimSpace(category))]; ok {
		return e
	}
	return defaultEmoji
}

type exportGroup struct {
	header string
	names  []string
}

// Export renders items as plain text grouped by category. Groups are sorted
// by category and items by name; groups are separated by a blank line.
//
//	🥛 DAIRY
//	• Milk (2 L)
func Export(items Selection) string {
	groups := make(map[string]*exportGroup)
	for name, item := range items {
		category := orDefault(item.Category, DefaultCategory)
		key := strings.ToLower(category)
		g, ok := groups[key]
		if !ok {
			g = &exportGroup{header: fmt.Sprintf("%s %s", CategoryEmoji(category), strings.ToUpper(category))}
			groups[key] = g
		}
		g.names = append(g.names, name)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("\n")
		}
		g := groups[k]
		sort.Slice(g.names, func(a, b int) bool {
			la, lb := strings.ToLower(g.names[a]), strings.ToLower(g.names[b])
			if la != lb {
				return la < lb
			}
			return g.names[a] < g.names[b]
		})

		sb.WriteString(g.header)
		sb.WriteString("\n")
		for _, name := range g.names {
			sb.WriteString(exportLine(name, items[name]))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func exportLine(name string, item SelectionItem) string {
	if !item.HasQuantity() {
		return fmt.Sprintf("• %s", name)
	}
	if item.Unit == "" {
		return fmt.Sprintf("• %s (%s)", name, item.DisplayQuantity())
	}
	return fmt.Sprintf("• %s (%s %s)", name, item.DisplayQuantity(), item.Unit)
}
