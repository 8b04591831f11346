package search

import (
	"fmt"
	"math"
	"strings"

	"social-feed-go/internal/model"
)

const (
	// MinConfidence / MaxConfidence 是答案置信度的上下限，模板答案不代表经过验证的事实。
	MinConfidence = 0.2
	MaxConfidence = 0.95

	fallbackConfidence = 0.35
	answerPosts        = 5
	answerKeywords     = 8
	insightCount       = 3
	fillerInsight      = "- More insights emerge as new posts are added."
)

// ClampConfidence 保留两位小数并限制在 [MinConfidence, MaxConfidence]。
func ClampConfidence(v float64) float64 {
	v = math.Round(v*100) / 100
	return math.Max(MinConfidence, math.Min(MaxConfidence, v))
}

// BuildLocalAnswer 根据排序后的前 5 条本地结果生成摘要答案。
func BuildLocalAnswer(query string, ranked []Scored) *model.Answer {
	if len(ranked) > answerPosts {
		ranked = ranked[:answerPosts]
	}

	texts := make([]string, 0, len(ranked))
	titles := make([]string, 0, len(ranked))
	sources := make([]model.AnswerSource, 0, len(ranked))
	for _, r := range ranked {
		texts = append(texts, r.Text)
		titles = append(titles, r.Title)
		sources = append(sources, model.AnswerSource{Name: r.Title, URL: model.Permalink(r.PostID)})
	}

	keywords := dedupe(answerKeywords, ExtractKeywords(query), ExtractKeywords(strings.Join(texts, " ")))

	topScore := fallbackConfidence
	if len(ranked) > 0 {
		topScore = ranked[0].Score
	}

	return &model.Answer{
		Summary:    localSentences(query, keywords) + insights(titles, keywords),
		Confidence: ClampConfidence(0.3 + topScore*0.7),
		Sources:    sources,
	}
}

func localSentences(query string, keywords []string) string {
	topic := topicOf(keywords, query)
	highlights := window(keywords, 1, 4)
	secondary := window(keywords, 4, 7)

	var first, second string
	if len(highlights) > 0 {
		first = fmt.Sprintf("Based on posts in the app, the discussion around %s focuses on %s.", topic, formatList(highlights))
	} else {
		first = fmt.Sprintf("Based on posts in the app, users share practical notes and recurring themes around %s.", topic)
	}
	if len(secondary) > 0 {
		second = fmt.Sprintf("Common threads connect %s with %s.", formatList(secondary), topic)
	} else {
		second = fmt.Sprintf("The most relevant posts connect %s with day-to-day usage and real examples.", topic)
	}
	return first + " " + second
}

// insights 依次使用标题、关键词和通用填充句生成 3 条要点。
func insights(titles, keywords []string) string {
	bullets := make([]string, 0, insightCount)
	for _, title := range titles {
		if len(bullets) == insightCount {
			break
		}
		if title != "" {
			bullets = append(bullets, "- Common theme: "+title)
		}
	}
	for _, kw := range window(keywords, 0, insightCount) {
		if len(bullets) == insightCount {
			break
		}
		bullets = append(bullets, fmt.Sprintf("- Users often mention %s.", kw))
	}
	for len(bullets) < insightCount {
		bullets = append(bullets, fillerInsight)
	}
	return "\n\nInsights:\n" + strings.Join(bullets, "\n")
}

// BuildFallbackAnswer 在没有本地结果时，根据外部结果生成三句话的摘要，sourceName 是外部来源的展示名称。
func BuildFallbackAnswer(query, sourceName string, external []model.ExternalSnippet) *model.Answer {
	var best *model.ExternalSnippet
	if len(external) > 0 {
		best = &external[0]
	}

	topic := strings.TrimSpace(query)
	snippet := ""
	if best != nil {
		if best.Title != "" {
			topic = best.Title
		}
		snippet = strings.TrimSpace(best.Snippet)
	}
	if topic == "" {
		topic = "this topic"
	}

	var middle string
	if snippet != "" {
		middle = fmt.Sprintf("%s suggests that %s.", sourceName, strings.TrimSuffix(snippet, "."))
	} else {
		middle = fmt.Sprintf("%s has general background information about %s.", sourceName, topic)
	}

	sources := []model.AnswerSource{}
	if best != nil {
		sources = append(sources, model.AnswerSource{Name: sourceName, URL: best.URL})
	}

	return &model.Answer{
		Summary:    "No relevant posts were found in the app. " + middle + " This summary is based on external sources.",
		Confidence: ClampConfidence(fallbackConfidence),
		Sources:    sources,
	}
}

func topicOf(keywords []string, query string) string {
	if len(keywords) > 0 {
		return keywords[0]
	}
	if q := strings.TrimSpace(query); q != "" {
		return q
	}
	return "this topic"
}

// window 返回 s[from:to]，越界时自动收缩。
func window(s []string, from, to int) []string {
	if from >= len(s) {
		return nil
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}

func formatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
