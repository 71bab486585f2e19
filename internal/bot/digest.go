package bot

import (
	"fmt"
	"strings"

	"dailybrief/internal/domain"
	"dailybrief/internal/markdown"
)

const (
	telegramMessageMaxLength = 4096

	digestHeader             = "☀️ *Daily brief*\n\n"
	digestContinuationHeader = "☀️ *Daily brief \\(continue\\)*\n\n"
	digestDateLayout         = "Monday, 2 January 2006"
)

// FormatDigest renders d as MarkdownV2 messages that fit Telegram's limit.
func FormatDigest(d *domain.Digest) []string {
	if d == nil {
		return nil
	}

	blocks := []string{
		fmt.Sprintf("🗓 _%s_\n\n", markdown.EscapeV2(d.CreatedAt.Format(digestDateLayout))),
		sectionBlock("📅", "Calendar", d.Calendar),
		sectionBlock("📰", "News", d.News),
	}

	if w := strings.TrimSpace(d.Weather); w != "" {
		blocks = append(blocks, fmt.Sprintf("🌤 *Weather*\n%s\n\n", markdown.EscapeV2(w)))
	}

	return markdown.SplitMessages(digestHeader, digestContinuationHeader, blocks, telegramMessageMaxLength)
}

// sectionBlock prefers the summary and falls back to the raw text.
func sectionBlock(icon string, title string, s domain.Section) string {
	var body string

	switch {
	case s.Summary != "":
		body = markdown.EscapeV2(strings.TrimSpace(s.Summary))
	case s.Text != "" && s.Error != "":
		body = markdown.EscapeV2(strings.TrimSpace(s.Text)) +
			"\n\n_" + markdown.EscapeV2("Summary unavailable: "+s.Error) + "_"
	case s.Error != "":
		body = "_" + markdown.EscapeV2(s.Error) + "_"
	default:
		body = markdown.EscapeV2(strings.TrimSpace(s.Text))
	}

	return fmt.Sprintf("%s *%s*\n%s\n\n", icon, title, body)
}
