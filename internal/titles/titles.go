// Package titles derives sort titles.
package titles

import "strings"

var leadingArticles = []string{"the ", "a ", "an "}

// SortTitleFor moves a leading English article to the end:
// "The Whale" sorts as "Whale, The".
func SortTitleFor(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	lower := strings.ToLower(title)
	for _, article := range leadingArticles {
		if strings.HasPrefix(lower, article) && len(title) > len(article) {
			rest := strings.TrimSpace(title[len(article):])
			return rest + ", " + strings.TrimSpace(title[:len(article)])
		}
	}
	return title
}
