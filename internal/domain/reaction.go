package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TargetKind определяет, на какую таблицу указывает Target.
type TargetKind int16

const (
	TargetPost    TargetKind = 1
	TargetComment TargetKind = 2
)

func (k TargetKind) String() string {
	switch k {
	case TargetPost:
		return "post"
	case TargetComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Target - полиморфная ссылка реакции: пост или комментарий.
type Target struct {
	Kind TargetKind
	ID   int64
}

func PostRef(id int64) Target { return Target{Kind: TargetPost, ID: id} }

func CommentRef(id int64) Target { return Target{Kind: TargetComment, ID: id} }

// String возвращает "post:12" или "comment:7".
func (t Target) String() string {
	return t.Kind.String() + ":" + strconv.FormatInt(t.ID, 10)
}

// ParseTarget - обратная операция к Target.String.
func ParseTarget(s string) (Target, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return Target{}, fmt.Errorf("malformed target %q", s)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Target{}, fmt.Errorf("malformed target id %q: %w", s, err)
	}
	switch kind {
	case "post":
		return PostRef(n), nil
	case "comment":
		return CommentRef(n), nil
	}
	return Target{}, fmt.Errorf("unknown target kind %q", kind)
}

type ReactionValue int16

const (
	Like    ReactionValue = 1
	Dislike ReactionValue = 2
)

func (v ReactionValue) String() string {
	switch v {
	case Like:
		return "like"
	case Dislike:
		return "dislike"
	default:
		return "unknown"
	}
}

func (v ReactionValue) Valid() bool {
	return v == Like || v == Dislike
}

// ParseReactionValue принимает "like"/"dislike" и числовые формы "1"/"2".
func ParseReactionValue(s string) (ReactionValue, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "like", "1":
		return Like, nil
	case "dislike", "2":
		return Dislike, nil
	}
	return 0, NewValidationError("reaction", "must be like or dislike")
}

// ToggleOutcome - переход, примененный к строке (профиль, цель).
type ToggleOutcome int

const (
	ReactionCreated ToggleOutcome = iota + 1
	ReactionChanged
	ReactionRemoved
)

func (o ToggleOutcome) String() string {
	switch o {
	case ReactionCreated:
		return "created"
	case ReactionChanged:
		return "changed"
	case ReactionRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// ReactionToggle - результат переключения. Reaction равен nil, если строка удалена.
type ReactionToggle struct {
	Outcome  ToggleOutcome
	Reaction *Reaction
}

// ReactionCounts всегда считаются по текущим строкам, без кэша.
type ReactionCounts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

func (c *ReactionCounts) Add(v ReactionValue, n int64) {
	switch v {
	case Like:
		c.Likes += n
	case Dislike:
		c.Dislikes += n
	}
}
