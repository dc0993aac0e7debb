package domain

import (
	"strings"
	"unicode/utf8"
)

const MaxTagTitleLen = 50

// ParseTagTitles извлекает названия тегов из строки вида "#go #web".
// Токены без '#' в начале отбрасываются и не склеиваются с соседним тегом:
// "#go world" дает только go. "#go#web" дает два тега,
// повторы сохраняются один раз в порядке появления. Пустая строка - пустой набор.
func ParseTagTitles(input string) ([]string, error) {
	var (
		titles []string
		seen   = make(map[string]struct{})
		verr   ValidationError
	)
	for _, token := range strings.Fields(input) {
		if !strings.HasPrefix(token, "#") {
			continue
		}
		for _, title := range strings.Split(token, "#") {
			if title == "" {
				continue
			}
			if utf8.RuneCountInString(title) > MaxTagTitleLen {
				verr.Add("tags", "tag #"+title+" is longer than 50 characters")
				continue
			}
			if _, ok := seen[title]; ok {
				continue
			}
			seen[title] = struct{}{}
			titles = append(titles, title)
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return titles, nil
}
