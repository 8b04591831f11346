package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	untitledPost    = "Untitled post"
	titleMaxRunes   = 60
	excerptMaxRunes = 140
	maxKeywords     = 10
)

var (
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	newlinePattern = regexp.MustCompile(`\r?\n`)
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "were": {}, "you": {}, "your": {},
	"about": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {},
	"why": {}, "how": {}, "but": {}, "not": {}, "can": {}, "could": {},
	"should": {}, "would": {}, "into": {}, "our": {}, "out": {}, "use": {},
	"using": {},
}

// NormalizeQuery 去除首尾空白并转为小写，作为缓存 key 和查询向量的输入。
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// ExtractKeywords 从文本中提取最多 10 个去重关键词，保持首次出现的顺序。
func ExtractKeywords(text string) []string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")

	seen := make(map[string]struct{})
	keywords := make([]string, 0, maxKeywords)
	for _, token := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(token) <= 2 {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// Title 取帖子正文第一行作为标题，超过 60 个字符时截断。
func Title(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return untitledPost
	}
	firstLine := newlinePattern.Split(trimmed, 2)[0]
	return truncate(firstLine, titleMaxRunes)
}

// Excerpt 返回截断到 140 个字符的正文摘要。
func Excerpt(text string) string {
	return truncate(strings.TrimSpace(text), excerptMaxRunes)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// dedupe 合并多个关键词列表，去重并截断到 max 个。
func dedupe(max int, lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, max)
	for _, list := range lists {
		for _, kw := range list {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
			if len(out) == max {
				return out
			}
		}
	}
	return out
}
