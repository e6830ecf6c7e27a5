package insight

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Pages whose questions are summarised for reviewers.
var reviewedPages = map[string]bool{"2": true, "3": true}

type surveyDoc struct {
	Pages []struct {
		Name     string    `json:"name"`
		Elements []element `json:"elements"`
	} `json:"pages"`
}

type element struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Title   json.RawMessage `json:"title"`
	Choices []choice        `json:"choices"`
}

type choice struct {
	Value json.RawMessage `json:"value"`
	Text  json.RawMessage `json:"text"`
}

// Narrative renders answers to the reviewed pages as "title: answer" lines, in
// question order. Questions without an answer are skipped.
func Narrative(surveyJSON string, answers []byte) (string, error) {
	var doc surveyDoc
	if err := json.Unmarshal([]byte(surveyJSON), &doc); err != nil {
		return "", fmt.Errorf("insight: parse survey: %w", err)
	}
	var given map[string]json.RawMessage
	if err := json.Unmarshal(answers, &given); err != nil {
		return "", fmt.Errorf("insight: parse answers: %w", err)
	}

	var b strings.Builder
	for _, page := range doc.Pages {
		if !reviewedPages[page.Name] {
			continue
		}
		for _, el := range page.Elements {
			raw, ok := given[el.Name]
			if !ok {
				continue
			}
			title := localized(el.Title)
			if title == "" {
				title = el.Name
			}
			fmt.Fprintf(&b, "%s: %s\n", title, el.answerText(raw))
		}
	}
	return b.String(), nil
}

func (el element) answerText(raw json.RawMessage) string {
	switch el.Type {
	case "radiogroup", "checkbox", "dropdown":
		var many []json.RawMessage
		if err := json.Unmarshal(raw, &many); err == nil {
			texts := make([]string, 0, len(many))
			for _, v := range many {
				texts = append(texts, el.choiceText(v))
			}
			return strings.Join(texts, ", ")
		}
		return el.choiceText(raw)
	case "boolean":
		var yes bool
		if err := json.Unmarshal(raw, &yes); err == nil && yes {
			return "yes"
		}
		return "no"
	default:
		return scalar(raw)
	}
}

func (el element) choiceText(v json.RawMessage) string {
	want := scalar(v)
	for _, c := range el.Choices {
		if scalar(c.Value) == want {
			if text := localized(c.Text); text != "" {
				return text
			}
			break
		}
	}
	return want
}

// localized accepts a plain string or a locale map such as {"default": ..., "zh-cn": ...}.
func localized(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	for _, key := range []string{"default", "en", "zh-cn"} {
		if v := m[key]; v != "" {
			return v
		}
	}
	for _, v := range m {
		return v
	}
	return ""
}

// scalar renders a JSON value as bare text: strings unquoted, anything else as written.
func scalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
