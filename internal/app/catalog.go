package app

import (
	"fmt"
	"strings"
)

// Topic is one selectable item inside a section.
type Topic struct {
	ID    string
	Title string
}

const (
	sectionPythonBasics = "Основы Питона"
	sectionEGE          = "ЕГЭ 1-27"

	egeTopicCount    = 27
	egeTopicIDPrefix = "ege"
)

var pythonBasicsTopics = []Topic{
	{ID: "op1", Title: "Вводный урок"},
	{ID: "op2", Title: "Условия и операторы"},
	{ID: "op3", Title: "Цикл for"},
	{ID: "op4", Title: "Цикл while"},
	{ID: "op5", Title: "Практика: циклы"},
	{ID: "op6", Title: "Строки и срезы"},
	{ID: "op7", Title: "Списки"},
}

// Sections returns the selectable sections in display order.
func Sections() []string {
	return []string{sectionPythonBasics, sectionEGE}
}

// SectionTopics returns the topics of a section, nil for unknown sections.
func SectionTopics(section string) []Topic {
	switch section {
	case sectionPythonBasics:
		return pythonBasicsTopics
	case sectionEGE:
		topics := make([]Topic, 0, egeTopicCount)
		for i := 1; i <= egeTopicCount; i++ {
			topics = append(topics, Topic{
				ID:    fmt.Sprintf("%s%d", egeTopicIDPrefix, i),
				Title: fmt.Sprintf("Задание %d", i),
			})
		}
		return topics
	default:
		return nil
	}
}

// TopicTitle resolves a topic id within a section to its display title.
func TopicTitle(section, topicID string) (string, bool) {
	if section == sectionEGE && strings.HasPrefix(topicID, egeTopicIDPrefix) {
		num := strings.TrimPrefix(topicID, egeTopicIDPrefix)
		if num != "" {
			return "Задание " + num, true
		}
	}
	for _, t := range SectionTopics(section) {
		if t.ID == topicID {
			return t.Title, true
		}
	}
	return "", false
}
