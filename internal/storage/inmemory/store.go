package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"
)

type reactionKey struct {
	profileID int64
	target    domain.Target
}

type followKey struct {
	senderID    int64
	recipientID int64
}

// Store реализует интерфейс Storage в памяти.
// Все записи выполняются под одним мьютексом, поэтому переключение реакций,
// смена активного профиля и счетчик просмотров атомарны.
type Store struct {
	mu sync.RWMutex

	lastID map[string]int64

	users          map[int64]*domain.User
	usersByName    map[string]int64
	profiles       map[int64]*domain.Profile
	profilesBySlug map[string]int64

	posts       map[int64]*domain.Post
	postTags    map[int64][]int64 // map[postID][]tagID
	tags        map[int64]*domain.Tag
	tagsByTitle map[string]int64
	tagsBySlug  map[string]int64

	comments       map[int64]*domain.Comment
	commentsByPost map[int64][]int64 // map[postID][]commentID (все уровни)

	reactions map[reactionKey]*domain.Reaction
	follows   map[followKey]*domain.Follow
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		lastID:         make(map[string]int64),
		users:          make(map[int64]*domain.User),
		usersByName:    make(map[string]int64),
		profiles:       make(map[int64]*domain.Profile),
		profilesBySlug: make(map[string]int64),
		posts:          make(map[int64]*domain.Post),
		postTags:       make(map[int64][]int64),
		tags:           make(map[int64]*domain.Tag),
		tagsByTitle:    make(map[string]int64),
		tagsBySlug:     make(map[string]int64),
		comments:       make(map[int64]*domain.Comment),
		commentsByPost: make(map[int64][]int64),
		reactions:      make(map[reactionKey]*domain.Reaction),
		follows:        make(map[followKey]*domain.Follow),
	}
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) Close() error { return nil }

func (s *Store) nextID(table string) int64 {
	s.lastID[table]++
	return s.lastID[table]
}

func now() time.Time { return time.Now().UTC() }

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, *domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByName[user.Username]; ok {
		return nil, nil, domain.NewValidationError("username", "already taken")
	}

	u := *user
	u.ID = s.nextID("users")
	u.CreatedAt = now()
	s.users[u.ID] = &u
	s.usersByName[u.Username] = u.ID

	p, err := s.insertProfileLocked(&domain.Profile{UserID: u.ID, Name: u.Username})
	if err != nil {
		delete(s.users, u.ID)
		delete(s.usersByName, u.Username)
		return nil, nil, err
	}
	out := u
	return &out, p, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	u := *s.users[id]
	return &u, nil
}

// === Profile Methods ===

func (s *Store) CreateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[profile.UserID]; !ok {
		return nil, fmt.Errorf("user %d: %w", profile.UserID, domain.ErrNotFound)
	}
	return s.insertProfileLocked(profile)
}

// insertProfileLocked добавляет профиль и делает его единственным активным профилем пользователя.
func (s *Store) insertProfileLocked(profile *domain.Profile) (*domain.Profile, error) {
	if err := domain.ValidateProfile(profile); err != nil {
		return nil, err
	}

	p := *profile
	if p.Slug == "" {
		p.Slug = domain.ProfileSlug(p.Name)
		for s.profilesBySlug[p.Slug] != 0 {
			p.Slug = domain.ProfileSlug(p.Name)
		}
	} else if _, taken := s.profilesBySlug[p.Slug]; taken {
		return nil, domain.NewValidationError("slug", "already taken")
	}

	for _, other := range s.profiles {
		if other.UserID == p.UserID {
			other.Active = false
		}
	}
	p.ID = s.nextID("profiles")
	p.Active = true
	p.CreatedAt = now()
	s.profiles[p.ID] = &p
	s.profilesBySlug[p.Slug] = p.ID

	out := p
	return &out, nil
}

func (s *Store) SwitchActiveProfile(ctx context.Context, userID, profileID int64) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.profiles[profileID]
	if !ok || target.UserID != userID {
		return nil, fmt.Errorf("profile %d: %w", profileID, domain.ErrNotFound)
	}
	for _, p := range s.profiles {
		if p.UserID == userID {
			p.Active = p.ID == profileID
		}
	}
	out := *target
	return &out, nil
}

func (s *Store) ActiveProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// При нескольких активных профилях детерминированно берем профиль с меньшим id.
	var active *domain.Profile
	for _, p := range s.profiles {
		if p.UserID == userID && p.Active && (active == nil || p.ID < active.ID) {
			active = p
		}
	}
	if active == nil {
		return nil, domain.ErrNoActiveProfile
	}
	out := *active
	return &out, nil
}

func (s *Store) GetProfileBySlug(ctx context.Context, slug string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.profilesBySlug[slug]
	if !ok {
		return nil, fmt.Errorf("profile %q: %w", slug, domain.ErrNotFound)
	}
	out := *s.profiles[id]
	return &out, nil
}

func (s *Store) GetProfilesByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]*domain.Profile, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out := *p
			result[id] = &out
		}
	}
	return result, nil
}

func (s *Store) GetProfilesByUser(ctx context.Context, userID int64) ([]*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Profile
	for _, p := range s.profiles {
		if p.UserID == userID {
			out := *p
			result = append(result, &out)
		}
	}
	sortProfiles(result)
	return result, nil
}

func (s *Store) GetProfiles(ctx context.Context, page storage.Page) ([]*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out := *p
		result = append(result, &out)
	}
	sortProfiles(result)
	return paginate(result, page), nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID int64, slug string, upd storage.ProfileUpdate) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ownedProfileLocked(userID, slug)
	if err != nil {
		return nil, err
	}
	candidate := *p
	candidate.Name = upd.Name
	candidate.About = upd.About
	candidate.Birthday = upd.Birthday
	if err := domain.ValidateProfile(&candidate); err != nil {
		return nil, err
	}
	*p = candidate
	out := candidate
	return &out, nil
}

func (s *Store) DeleteProfile(ctx context.Context, userID int64, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ownedProfileLocked(userID, slug)
	if err != nil {
		return err
	}

	var rest []*domain.Profile
	for _, other := range s.profiles {
		if other.UserID == userID && other.ID != p.ID {
			rest = append(rest, other)
		}
	}
	if len(rest) == 0 {
		return domain.NewValidationError("profile", "cannot delete the last profile")
	}

	for id, post := range s.posts {
		if post.AuthorID == p.ID {
			s.deletePostLocked(id)
		}
	}
	for id, c := range s.comments {
		if c.AuthorID == p.ID {
			s.deleteCommentTreeLocked(id)
		}
	}
	for key := range s.reactions {
		if key.profileID == p.ID {
			delete(s.reactions, key)
		}
	}
	for key := range s.follows {
		if key.senderID == p.ID || key.recipientID == p.ID {
			delete(s.follows, key)
		}
	}
	for _, t := range s.tags {
		if t.AuthorID != nil && *t.AuthorID == p.ID {
			t.AuthorID = nil
		}
	}
	delete(s.profiles, p.ID)
	delete(s.profilesBySlug, p.Slug)

	if p.Active {
		newest := rest[0]
		for _, other := range rest[1:] {
			if other.CreatedAt.After(newest.CreatedAt) ||
				(other.CreatedAt.Equal(newest.CreatedAt) && other.ID > newest.ID) {
				newest = other
			}
		}
		for _, other := range rest {
			other.Active = other == newest
		}
	}
	return nil
}

func (s *Store) ownedProfileLocked(userID int64, slug string) (*domain.Profile, error) {
	id, ok := s.profilesBySlug[slug]
	if !ok || s.profiles[id].UserID != userID {
		return nil, fmt.Errorf("profile %q: %w", slug, domain.ErrNotFound)
	}
	return s.profiles[id], nil
}

func sortProfiles(ps []*domain.Profile) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].UserID != ps[j].UserID {
			return ps[i].UserID < ps[j].UserID
		}
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post, tagTitles []string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := domain.ValidatePost(post); err != nil {
		return nil, err
	}
	if _, ok := s.profiles[post.AuthorID]; !ok {
		return nil, fmt.Errorf("author profile %d: %w", post.AuthorID, domain.ErrNotFound)
	}

	p := *post
	p.ID = s.nextID("posts")
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	p.Views = 0
	p.Changed = false
	p.Author = nil
	p.Tags = nil
	s.posts[p.ID] = &p
	s.postTags[p.ID] = s.resolveTagsLocked(tagTitles, p.AuthorID)

	return s.hydratePostLocked(&p), nil
}

func (s *Store) UpdatePost(ctx context.Context, userID, postID int64, upd storage.PostUpdate, tagTitles []string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ownedPostLocked(userID, postID)
	if err != nil {
		return nil, err
	}

	candidate := *p
	candidate.Title = upd.Title
	candidate.Caption = upd.Caption
	candidate.Picture = upd.Picture
	candidate.Archived = upd.Archived
	if upd.AuthorID != 0 {
		author, ok := s.profiles[upd.AuthorID]
		if !ok || author.UserID != userID {
			return nil, domain.NewValidationError("author", "must be one of your profiles")
		}
		candidate.AuthorID = upd.AuthorID
	}
	if err := domain.ValidatePost(&candidate); err != nil {
		return nil, err
	}
	candidate.Changed = true
	candidate.UpdatedAt = now()
	*p = candidate
	s.postTags[p.ID] = s.resolveTagsLocked(tagTitles, p.AuthorID)

	return s.hydratePostLocked(p), nil
}

func (s *Store) DeletePost(ctx context.Context, userID, postID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedPostLocked(userID, postID); err != nil {
		return err
	}
	s.deletePostLocked(postID)
	return nil
}

func (s *Store) GetPostByID(ctx context.Context, id int64) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	return s.hydratePostLocked(p), nil
}

func (s *Store) ViewPost(ctx context.Context, id int64) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok || p.Archived {
		return nil, fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	p.Views++
	return s.hydratePostLocked(p), nil
}

func (s *Store) GetPosts(ctx context.Context, page storage.Page) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listPostsLocked(page, func(p *domain.Post) bool { return !p.Archived }), nil
}

func (s *Store) GetPostsByProfile(ctx context.Context, profileID int64, includeArchived bool, page storage.Page) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listPostsLocked(page, func(p *domain.Post) bool {
		return p.AuthorID == profileID && (includeArchived || !p.Archived)
	}), nil
}

func (s *Store) GetPostsByTag(ctx context.Context, tagSlug string, page storage.Page) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tagID, ok := s.tagsBySlug[tagSlug]
	if !ok {
		return nil, fmt.Errorf("tag %q: %w", tagSlug, domain.ErrNotFound)
	}
	return s.listPostsLocked(page, func(p *domain.Post) bool {
		if p.Archived {
			return false
		}
		for _, id := range s.postTags[p.ID] {
			if id == tagID {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) listPostsLocked(page storage.Page, keep func(*domain.Post) bool) []*domain.Post {
	var matched []*domain.Post
	for _, p := range s.posts {
		if keep(p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	matched = paginate(matched, page)

	result := make([]*domain.Post, len(matched))
	for i, p := range matched {
		result[i] = s.hydratePostLocked(p)
	}
	return result
}

func (s *Store) ownedPostLocked(userID, postID int64) (*domain.Post, error) {
	p, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", postID, domain.ErrNotFound)
	}
	author, ok := s.profiles[p.AuthorID]
	if !ok || author.UserID != userID {
		return nil, fmt.Errorf("post %d: %w", postID, domain.ErrNotFound)
	}
	return p, nil
}

// hydratePostLocked возвращает копию поста с автором и тегами.
func (s *Store) hydratePostLocked(p *domain.Post) *domain.Post {
	out := *p
	if author, ok := s.profiles[p.AuthorID]; ok {
		a := *author
		out.Author = &a
	}
	out.Tags = make([]*domain.Tag, 0, len(s.postTags[p.ID]))
	for _, id := range s.postTags[p.ID] {
		if t, ok := s.tags[id]; ok {
			tc := *t
			out.Tags = append(out.Tags, &tc)
		}
	}
	return &out
}

// resolveTagsLocked находит или создает теги по названиям. Автор назначается
// только новым тегам.
func (s *Store) resolveTagsLocked(titles []string, authorID int64) []int64 {
	ids := make([]int64, 0, len(titles))
	seen := make(map[int64]struct{}, len(titles))
	for _, title := range titles {
		id, ok := s.tagsByTitle[title]
		if !ok {
			slug := domain.TagSlug(title)
			for s.tagsBySlug[slug] != 0 {
				slug = domain.DisambiguateSlug(domain.TagSlug(title))
			}
			author := authorID
			t := &domain.Tag{ID: s.nextID("tags"), Title: title, Slug: slug, AuthorID: &author}
			s.tags[t.ID] = t
			s.tagsByTitle[title] = t.ID
			s.tagsBySlug[slug] = t.ID
			id = t.ID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) deletePostLocked(postID int64) {
	for _, cID := range s.commentsByPost[postID] {
		delete(s.comments, cID)
		s.deleteReactionsLocked(domain.CommentRef(cID))
	}
	delete(s.commentsByPost, postID)
	s.deleteReactionsLocked(domain.PostRef(postID))
	delete(s.postTags, postID)
	delete(s.posts, postID)
}

func (s *Store) deleteReactionsLocked(target domain.Target) {
	for key := range s.reactions {
		if key.target == target {
			delete(s.reactions, key)
		}
	}
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверка поста
	post, ok := s.posts[comment.PostID]
	if !ok || post.Archived {
		return nil, fmt.Errorf("post %d: %w", comment.PostID, domain.ErrNotFound)
	}
	if _, ok := s.profiles[comment.AuthorID]; !ok {
		return nil, fmt.Errorf("author profile %d: %w", comment.AuthorID, domain.ErrNotFound)
	}
	if err := domain.ValidateCommentText(comment.Text); err != nil {
		return nil, err
	}

	// Проверка родительского комментария
	if comment.ParentID != nil {
		parent, ok := s.comments[*comment.ParentID]
		if !ok {
			return nil, domain.NewValidationError("parentId", "parent comment not found")
		}
		if parent.PostID != comment.PostID {
			return nil, domain.NewValidationError("parentId", "parent comment belongs to another post")
		}
	}

	c := *comment
	c.ID = s.nextID("comments")
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	c.Deleted = false
	c.Changed = false
	s.comments[c.ID] = &c
	s.commentsByPost[c.PostID] = append(s.commentsByPost[c.PostID], c.ID)

	out := c
	return &out, nil
}

func (s *Store) UpdateComment(ctx context.Context, userID, commentID int64, text string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.ownedCommentLocked(userID, commentID)
	if err != nil {
		return nil, err
	}
	if c.Deleted {
		return nil, fmt.Errorf("comment %d: %w", commentID, domain.ErrNotFound)
	}
	if err := domain.ValidateCommentText(text); err != nil {
		return nil, err
	}
	c.Text = text
	c.Changed = true
	c.UpdatedAt = now()
	out := *c
	return &out, nil
}

func (s *Store) DeleteComment(ctx context.Context, userID, commentID int64) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.ownedCommentLocked(userID, commentID)
	if err != nil {
		return nil, err
	}
	if !c.Deleted {
		c.Deleted = true
		c.UpdatedAt = now()
	}
	out := *c
	return &out, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByPost[postID]
	result := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			out := *c
			result = append(result, &out)
		}
	}
	// Сортируем по времени создания, чтобы порядок был консистентным
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) ownedCommentLocked(userID, commentID int64) (*domain.Comment, error) {
	c, ok := s.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("comment %d: %w", commentID, domain.ErrNotFound)
	}
	author, ok := s.profiles[c.AuthorID]
	if !ok || author.UserID != userID {
		return nil, fmt.Errorf("comment %d: %w", commentID, domain.ErrNotFound)
	}
	return c, nil
}

// deleteCommentTreeLocked физически удаляет комментарий вместе с ответами.
// Используется только при удалении профиля.
func (s *Store) deleteCommentTreeLocked(id int64) {
	c, ok := s.comments[id]
	if !ok {
		return
	}
	var children []int64
	for _, childID := range s.commentsByPost[c.PostID] {
		if child, ok := s.comments[childID]; ok && child.ParentID != nil && *child.ParentID == id {
			children = append(children, childID)
		}
	}
	for _, childID := range children {
		s.deleteCommentTreeLocked(childID)
	}
	delete(s.comments, id)
	s.deleteReactionsLocked(domain.CommentRef(id))

	ids := s.commentsByPost[c.PostID]
	kept := ids[:0]
	for _, cID := range ids {
		if cID != id {
			kept = append(kept, cID)
		}
	}
	s.commentsByPost[c.PostID] = kept
}

// === Reaction Methods ===

func (s *Store) ToggleReaction(ctx context.Context, profileID int64, target domain.Target, value domain.ReactionValue) (domain.ReactionToggle, error) {
	if !value.Valid() {
		return domain.ReactionToggle{}, domain.NewValidationError("reaction", "must be like or dislike")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profileID]; !ok {
		return domain.ReactionToggle{}, fmt.Errorf("profile %d: %w", profileID, domain.ErrNotFound)
	}
	if err := s.checkTargetLocked(target); err != nil {
		return domain.ReactionToggle{}, err
	}

	key := reactionKey{profileID: profileID, target: target}
	existing, ok := s.reactions[key]
	switch {
	case !ok:
		r := &domain.Reaction{
			ID:         s.nextID("reactions"),
			ProfileID:  profileID,
			TargetKind: target.Kind,
			TargetID:   target.ID,
			Value:      value,
			CreatedAt:  now(),
		}
		s.reactions[key] = r
		out := *r
		return domain.ReactionToggle{Outcome: domain.ReactionCreated, Reaction: &out}, nil
	case existing.Value != value:
		existing.Value = value
		out := *existing
		return domain.ReactionToggle{Outcome: domain.ReactionChanged, Reaction: &out}, nil
	default:
		delete(s.reactions, key)
		return domain.ReactionToggle{Outcome: domain.ReactionRemoved}, nil
	}
}

func (s *Store) checkTargetLocked(target domain.Target) error {
	switch target.Kind {
	case domain.TargetPost:
		if _, ok := s.posts[target.ID]; ok {
			return nil
		}
	case domain.TargetComment:
		if c, ok := s.comments[target.ID]; ok && !c.Deleted {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", target, domain.ErrNotFound)
}

func (s *Store) ReactionCounts(ctx context.Context, targets []domain.Target) (map[domain.Target]domain.ReactionCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[domain.Target]domain.ReactionCounts, len(targets))
	wanted := make(map[domain.Target]struct{}, len(targets))
	for _, t := range targets {
		result[t] = domain.ReactionCounts{}
		wanted[t] = struct{}{}
	}
	for key, r := range s.reactions {
		if _, ok := wanted[key.target]; !ok {
			continue
		}
		c := result[key.target]
		c.Add(r.Value, 1)
		result[key.target] = c
	}
	return result, nil
}

// === Follow Methods ===

func (s *Store) Follow(ctx context.Context, senderID, recipientID int64) (*domain.Follow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFollowPairLocked(senderID, recipientID); err != nil {
		return nil, err
	}
	key := followKey{senderID: senderID, recipientID: recipientID}
	f, ok := s.follows[key]
	if !ok {
		f = &domain.Follow{
			ID:          s.nextID("follows"),
			SenderID:    senderID,
			RecipientID: recipientID,
			CreatedAt:   now(),
		}
		s.follows[key] = f
	}
	out := *f
	return &out, nil
}

func (s *Store) Unfollow(ctx context.Context, senderID, recipientID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey{senderID: senderID, recipientID: recipientID}
	if _, ok := s.follows[key]; !ok {
		return fmt.Errorf("follow %d->%d: %w", senderID, recipientID, domain.ErrNotFound)
	}
	delete(s.follows, key)
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, senderID, recipientID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.follows[followKey{senderID: senderID, recipientID: recipientID}]
	return ok, nil
}

func (s *Store) GetFollowers(ctx context.Context, profileID int64) ([]*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.followProfilesLocked(func(k followKey) (int64, bool) {
		return k.senderID, k.recipientID == profileID
	}), nil
}

func (s *Store) GetFollowing(ctx context.Context, profileID int64) ([]*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.followProfilesLocked(func(k followKey) (int64, bool) {
		return k.recipientID, k.senderID == profileID
	}), nil
}

func (s *Store) GetFollowStats(ctx context.Context, profileID int64) (domain.FollowStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.FollowStats
	for k := range s.follows {
		if k.recipientID == profileID {
			stats.Followers++
		}
		if k.senderID == profileID {
			stats.Following++
		}
	}
	return stats, nil
}

func (s *Store) followProfilesLocked(pick func(followKey) (int64, bool)) []*domain.Profile {
	result := make([]*domain.Profile, 0)
	for k := range s.follows {
		id, ok := pick(k)
		if !ok {
			continue
		}
		if p, exists := s.profiles[id]; exists {
			out := *p
			result = append(result, &out)
		}
	}
	sortProfiles(result)
	return result
}

func (s *Store) checkFollowPairLocked(senderID, recipientID int64) error {
	if _, ok := s.profiles[senderID]; !ok {
		return fmt.Errorf("profile %d: %w", senderID, domain.ErrNotFound)
	}
	if _, ok := s.profiles[recipientID]; !ok {
		return fmt.Errorf("profile %d: %w", recipientID, domain.ErrNotFound)
	}
	if senderID == recipientID {
		return domain.NewValidationError("profile", "cannot follow yourself")
	}
	return nil
}

// paginate - вспомогательная функция для пагинации
func paginate[T any](items []T, page storage.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	if page.Offset > 0 {
		items = items[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
