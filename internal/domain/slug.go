package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Длины колонок profiles.slug и tags.slug.
const (
	MaxProfileSlugLen = 150
	MaxTagSlugLen     = 80

	profileSuffixLen = 8
	tagSuffixLen     = 6
)

// RandomSuffix возвращает n (не более 32) случайных hex-символов.
func RandomSuffix(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// makeSlug обрезает slug до max байт. Транслитерация кириллицы раздувает
// строку в несколько раз, а результат slug.Make всегда ASCII.
func makeSlug(s string, max int) string {
	out := slug.Make(s)
	if len(out) > max {
		out = strings.Trim(out[:max], "-")
	}
	return out
}

// ProfileSlug: "Ivan Petrov" -> "ivan-petrov-3f9a1c0b".
func ProfileSlug(name string) string {
	suffix := RandomSuffix(profileSuffixLen)
	base := makeSlug(name, MaxProfileSlugLen-profileSuffixLen-1)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// TagSlug строит slug тега. Если от названия ничего не остается, slug случайный.
// Оставляет место под суффикс DisambiguateSlug.
func TagSlug(title string) string {
	s := makeSlug(title, MaxTagSlugLen-tagSuffixLen-1)
	if s == "" {
		return "tag-" + RandomSuffix(8)
	}
	return s
}

// DisambiguateSlug добавляет суффикс к уже занятому slug тега.
func DisambiguateSlug(s string) string {
	return s + "-" + RandomSuffix(tagSuffixLen)
}
