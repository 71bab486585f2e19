package news

import (
	"fmt"
	"strings"

	"dailybrief/internal/domain"
)

const NoNewsText = "No top news found today."

func FormatHeadlines(articles []domain.Article) string {
	if len(articles) == 0 {
		return NoNewsText
	}

	var b strings.Builder
	for _, article := range articles {
		source := article.Source
		if source == "" {
			source = "Unknown"
		}

		fmt.Fprintf(&b, "- %s (%s)\n", article.Title, source)
	}

	return b.String()
}
