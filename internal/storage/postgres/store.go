package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/social-blog-service/internal/domain"
	"github.com/UkralStul/social-blog-service/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Config - параметры подключения к PostgreSQL.
type Config struct {
	DSN      string
	MaxConns int32
	LogLevel logger.LogLevel
}

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db    *gorm.DB
	sqlDB *sql.DB
	pool  *pgxpool.Pool
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр хранилища PostgreSQL поверх пула pgx.
// Схема не создается, для этого есть Migrate.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	level := cfg.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	return &Store{db: db, sqlDB: sqlDB, pool: pool}, nil
}

func (s *Store) Close() error {
	err := s.sqlDB.Close()
	s.pool.Close()
	return err
}

func wrapErr(err error, entity string, key any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %v: %w", entity, key, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s %v: %w", entity, key, err)
	}
}

func paginate(page storage.Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page.Offset > 0 {
			db = db.Offset(page.Offset)
		}
		if page.Limit > 0 {
			db = db.Limit(page.Limit)
		}
		return db
	}
}

func forUpdate() clause.Locking { return clause.Locking{Strength: "UPDATE"} }

// lockUser сериализует изменения профилей одного пользователя.
func lockUser(tx *gorm.DB, userID int64) error {
	var u domain.User
	err := tx.Clauses(forUpdate()).Select("id").Take(&u, userID).Error
	return wrapErr(err, "user", userID)
}

// userProfileIDs - подзапрос id профилей пользователя.
func userProfileIDs(tx *gorm.DB, userID int64) *gorm.DB {
	return tx.Model(&domain.Profile{}).Select("id").Where("user_id = ?", userID)
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, *domain.Profile, error) {
	u := *user
	u.ID = 0
	u.Profiles = nil
	var profile *domain.Profile

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.NewValidationError("username", "already taken")
			}
			return err
		}
		var err error
		profile, err = insertProfile(tx, &domain.Profile{UserID: u.ID, Name: u.Username})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &u, profile, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error
	if err != nil {
		return nil, wrapErr(err, "user", username)
	}
	return &u, nil
}

// === Profile Methods ===

func (s *Store) CreateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	var created *domain.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = insertProfile(tx, profile)
		return err
	})
	return created, err
}

// insertProfile добавляет профиль и делает его единственным активным.
func insertProfile(tx *gorm.DB, profile *domain.Profile) (*domain.Profile, error) {
	if err := domain.ValidateProfile(profile); err != nil {
		return nil, err
	}
	if err := lockUser(tx, profile.UserID); err != nil {
		return nil, err
	}

	p := *profile
	p.ID = 0
	p.Active = true
	generated := p.Slug == ""
	for {
		if generated {
			p.Slug = domain.ProfileSlug(p.Name)
		}
		var n int64
		if err := tx.Model(&domain.Profile{}).Where("slug = ?", p.Slug).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		if !generated {
			return nil, domain.NewValidationError("slug", "already taken")
		}
	}

	if err := tx.Model(&domain.Profile{}).
		Where("user_id = ? AND active", p.UserID).
		Update("active", false).Error; err != nil {
		return nil, err
	}
	if err := tx.Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.NewValidationError("slug", "already taken")
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) SwitchActiveProfile(ctx context.Context, userID, profileID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		if err := tx.Where("id = ? AND user_id = ?", profileID, userID).Take(&p).Error; err != nil {
			return wrapErr(err, "profile", profileID)
		}
		// Сначала снимаем флаг с остальных, иначе сработает частичный уникальный индекс.
		if err := tx.Model(&domain.Profile{}).
			Where("user_id = ? AND id <> ? AND active", userID, profileID).
			Update("active", false).Error; err != nil {
			return err
		}
		p.Active = true
		return tx.Model(&p).Update("active", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ActiveProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.WithContext(ctx).Where("user_id = ? AND active", userID).Order("id").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNoActiveProfile
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProfileBySlug(ctx context.Context, slug string) (*domain.Profile, error) {
	var p domain.Profile
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).Take(&p).Error; err != nil {
		return nil, wrapErr(err, "profile", slug)
	}
	return &p, nil
}

func (s *Store) GetProfilesByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Profile, error) {
	result := make(map[int64]*domain.Profile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var profiles []*domain.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		result[p.ID] = p
	}
	return result, nil
}

func (s *Store) GetProfilesByUser(ctx context.Context, userID int64) ([]*domain.Profile, error) {
	var profiles []*domain.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("name, id").Find(&profiles).Error
	return profiles, err
}

func (s *Store) GetProfiles(ctx context.Context, page storage.Page) ([]*domain.Profile, error) {
	var profiles []*domain.Profile
	err := s.db.WithContext(ctx).Order("user_id, name, id").Scopes(paginate(page)).Find(&profiles).Error
	return profiles, err
}

func (s *Store) UpdateProfile(ctx context.Context, userID int64, slug string, upd storage.ProfileUpdate) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate()).Where("slug = ? AND user_id = ?", slug, userID).Take(&p).Error; err != nil {
			return wrapErr(err, "profile", slug)
		}
		p.Name = upd.Name
		p.About = upd.About
		p.Birthday = upd.Birthday
		if err := domain.ValidateProfile(&p); err != nil {
			return err
		}
		return tx.Model(&domain.Profile{ID: p.ID}).Updates(map[string]any{
			"name":     p.Name,
			"about":    p.About,
			"birthday": p.Birthday,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Реакции не имеют внешнего ключа на цель, поэтому удаляются явно:
// на посты профиля, на комментарии этих постов и на поддеревья комментариев профиля.
const deleteProfileReactionsSQL = `
WITH RECURSIVE doomed AS (
    SELECT id FROM comments
    WHERE author_id = @profile OR post_id IN (SELECT id FROM posts WHERE author_id = @profile)
    UNION
    SELECT c.id FROM comments c JOIN doomed d ON c.parent_id = d.id
)
DELETE FROM reactions
WHERE (target_kind = @comment AND target_id IN (SELECT id FROM doomed))
   OR (target_kind = @post AND target_id IN (SELECT id FROM posts WHERE author_id = @profile))`

const lockProfileCommentsSQL = `
WITH RECURSIVE doomed AS (
    SELECT id FROM comments
    WHERE author_id = @profile OR post_id IN (SELECT id FROM posts WHERE author_id = @profile)
    UNION
    SELECT c.id FROM comments c JOIN doomed d ON c.parent_id = d.id
)
SELECT id FROM comments WHERE id IN (SELECT id FROM doomed) ORDER BY id FOR UPDATE`

func (s *Store) DeleteProfile(ctx context.Context, userID int64, slug string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var p domain.Profile
		if err := tx.Where("slug = ? AND user_id = ?", slug, userID).Take(&p).Error; err != nil {
			return wrapErr(err, "profile", slug)
		}
		var total int64
		if err := tx.Model(&domain.Profile{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
			return err
		}
		if total <= 1 {
			return domain.NewValidationError("profile", "cannot delete the last profile")
		}

		// Блокируем удаляемые посты и комментарии, чтобы на них не появились
		// новые реакции или ответы до каскадного удаления.
		var postIDs, commentIDs []int64
		if err := tx.Model(&domain.Post{}).Clauses(forUpdate()).
			Where("author_id = ?", p.ID).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if err := tx.Raw(lockProfileCommentsSQL, sql.Named("profile", p.ID)).Scan(&commentIDs).Error; err != nil {
			return err
		}
		if err := tx.Exec(deleteProfileReactionsSQL,
			sql.Named("profile", p.ID),
			sql.Named("post", domain.TargetPost),
			sql.Named("comment", domain.TargetComment),
		).Error; err != nil {
			return err
		}
		// Посты, комментарии, подписки и собственные реакции удаляются каскадно.
		if err := tx.Delete(&domain.Profile{}, p.ID).Error; err != nil {
			return err
		}

		if !p.Active {
			return nil
		}
		var newest domain.Profile
		if err := tx.Where("user_id = ?", userID).Order("created_at DESC, id DESC").First(&newest).Error; err != nil {
			return err
		}
		return tx.Model(&newest).Update("active", true).Error
	})
}

// === Post Methods ===

func withPostRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.id")
	})
}

func loadPost(db *gorm.DB, id int64) (*domain.Post, error) {
	var p domain.Post
	if err := db.Scopes(withPostRelations).Take(&p, id).Error; err != nil {
		return nil, wrapErr(err, "post", id)
	}
	return &p, nil
}

// ownedPost блокирует пост, если его автор - профиль пользователя.
func ownedPost(tx *gorm.DB, userID, postID int64) (*domain.Post, error) {
	var p domain.Post
	err := tx.Clauses(forUpdate()).
		Where("id = ? AND author_id IN (?)", postID, userProfileIDs(tx, userID)).
		Take(&p).Error
	if err != nil {
		return nil, wrapErr(err, "post", postID)
	}
	return &p, nil
}

// resolveTags находит или создает теги по названиям. Автор назначается только новым тегам.
func resolveTags(tx *gorm.DB, titles []string, authorID int64) ([]int64, error) {
	ids := make([]int64, 0, len(titles))
	seen := make(map[int64]struct{}, len(titles))
	for _, title := range titles {
		var tag domain.Tag
		err := tx.Where("title = ?", title).Take(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag, err = createTag(tx, title, authorID)
		}
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", title, err)
		}
		if _, dup := seen[tag.ID]; dup {
			continue
		}
		seen[tag.ID] = struct{}{}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

func createTag(tx *gorm.DB, title string, authorID int64) (domain.Tag, error) {
	slug := domain.TagSlug(title)
	for {
		var n int64
		if err := tx.Model(&domain.Tag{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
			return domain.Tag{}, err
		}
		if n == 0 {
			break
		}
		slug = domain.DisambiguateSlug(domain.TagSlug(title))
	}

	author := authorID
	tag := domain.Tag{Title: title, Slug: slug, AuthorID: &author}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "title"}},
		DoNothing: true,
	}).Create(&tag)
	if res.Error != nil {
		return domain.Tag{}, res.Error
	}
	if res.RowsAffected == 0 {
		// Тег с таким названием успели создать параллельно.
		tag = domain.Tag{}
		if err := tx.Where("title = ?", title).Take(&tag).Error; err != nil {
			return domain.Tag{}, err
		}
	}
	return tag, nil
}

func setPostTags(tx *gorm.DB, postID int64, tagIDs []int64) error {
	if err := tx.Where("post_id = ?", postID).Delete(&domain.PostTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]domain.PostTag, len(tagIDs))
	for i, id := range tagIDs {
		rows[i] = domain.PostTag{PostID: postID, TagID: id}
	}
	return tx.Create(&rows).Error
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post, tagTitles []string) (*domain.Post, error) {
	if err := domain.ValidatePost(post); err != nil {
		return nil, err
	}
	var created *domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author domain.Profile
		if err := tx.Select("id").Take(&author, post.AuthorID).Error; err != nil {
			return wrapErr(err, "author profile", post.AuthorID)
		}

		p := *post
		p.ID = 0
		p.Views = 0
		p.Changed = false
		p.Author = nil
		p.Tags = nil
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return err
		}
		tagIDs, err := resolveTags(tx, tagTitles, p.AuthorID)
		if err != nil {
			return err
		}
		if err := setPostTags(tx, p.ID, tagIDs); err != nil {
			return err
		}
		created, err = loadPost(tx, p.ID)
		return err
	})
	return created, err
}

func (s *Store) UpdatePost(ctx context.Context, userID, postID int64, upd storage.PostUpdate, tagTitles []string) (*domain.Post, error) {
	var updated *domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := ownedPost(tx, userID, postID)
		if err != nil {
			return err
		}

		if upd.AuthorID != 0 && upd.AuthorID != p.AuthorID {
			var n int64
			if err := tx.Model(&domain.Profile{}).
				Where("id = ? AND user_id = ?", upd.AuthorID, userID).
				Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return domain.NewValidationError("author", "must be one of your profiles")
			}
			p.AuthorID = upd.AuthorID
		}
		p.Title = upd.Title
		p.Caption = upd.Caption
		p.Picture = upd.Picture
		p.Archived = upd.Archived
		if err := domain.ValidatePost(p); err != nil {
			return err
		}

		if err := tx.Model(&domain.Post{ID: p.ID}).Updates(map[string]any{
			"title":      p.Title,
			"caption":    p.Caption,
			"picture":    p.Picture,
			"author_id":  p.AuthorID,
			"archived":   p.Archived,
			"changed":    true,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return err
		}
		tagIDs, err := resolveTags(tx, tagTitles, p.AuthorID)
		if err != nil {
			return err
		}
		if err := setPostTags(tx, p.ID, tagIDs); err != nil {
			return err
		}
		updated, err = loadPost(tx, p.ID)
		return err
	})
	return updated, err
}

const deletePostReactionsSQL = `
DELETE FROM reactions
WHERE (target_kind = @post AND target_id = @id)
   OR (target_kind = @comment AND target_id IN (SELECT id FROM comments WHERE post_id = @id))`

func (s *Store) DeletePost(ctx context.Context, userID, postID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedPost(tx, userID, postID); err != nil {
			return err
		}
		// Блокируем комментарии, чтобы на них не появились новые реакции до удаления.
		var commentIDs []int64
		if err := tx.Model(&domain.Comment{}).Clauses(forUpdate()).
			Where("post_id = ?", postID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if err := tx.Exec(deletePostReactionsSQL,
			sql.Named("id", postID),
			sql.Named("post", domain.TargetPost),
			sql.Named("comment", domain.TargetComment),
		).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Post{}, postID).Error
	})
}

func (s *Store) GetPostByID(ctx context.Context, id int64) (*domain.Post, error) {
	return loadPost(s.db.WithContext(ctx), id)
}

func (s *Store) ViewPost(ctx context.Context, id int64) (*domain.Post, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&domain.Post{}).
		Where("id = ? AND NOT archived", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("post %d: %w", id, domain.ErrNotFound)
	}
	return loadPost(db, id)
}

func (s *Store) listPosts(ctx context.Context, page storage.Page, filter func(*gorm.DB) *gorm.DB) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Scopes(withPostRelations, filter, paginate(page)).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	return posts, err
}

func (s *Store) GetPosts(ctx context.Context, page storage.Page) ([]*domain.Post, error) {
	return s.listPosts(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("NOT archived")
	})
}

func (s *Store) GetPostsByProfile(ctx context.Context, profileID int64, includeArchived bool, page storage.Page) ([]*domain.Post, error) {
	return s.listPosts(ctx, page, func(db *gorm.DB) *gorm.DB {
		db = db.Where("author_id = ?", profileID)
		if !includeArchived {
			db = db.Where("NOT archived")
		}
		return db
	})
}

func (s *Store) GetPostsByTag(ctx context.Context, tagSlug string, page storage.Page) ([]*domain.Post, error) {
	var tag domain.Tag
	if err := s.db.WithContext(ctx).Where("slug = ?", tagSlug).Take(&tag).Error; err != nil {
		return nil, wrapErr(err, "tag", tagSlug)
	}
	return s.listPosts(ctx, page, func(db *gorm.DB) *gorm.DB {
		tagged := s.db.Model(&domain.PostTag{}).Select("post_id").Where("tag_id = ?", tag.ID)
		return db.Where("NOT archived AND id IN (?)", tagged)
	})
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := domain.ValidateCommentText(comment.Text); err != nil {
		return nil, err
	}

	c := *comment
	c.ID = 0
	c.Deleted = false
	c.Changed = false
	// Проверяем существование поста и родителя в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.Post
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "archived").Take(&post, c.PostID).Error; err != nil {
			return wrapErr(err, "post", c.PostID)
		}
		if post.Archived {
			return fmt.Errorf("post %d: %w", c.PostID, domain.ErrNotFound)
		}
		var author domain.Profile
		if err := tx.Select("id").Take(&author, c.AuthorID).Error; err != nil {
			return wrapErr(err, "author profile", c.AuthorID)
		}

		// Если есть родитель, проверяем его существование
		if c.ParentID != nil {
			var parent domain.Comment
			err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
				Select("id", "post_id").Take(&parent, *c.ParentID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewValidationError("parentId", "parent comment not found")
			}
			if err != nil {
				return err
			}
			if parent.PostID != c.PostID {
				return domain.NewValidationError("parentId", "parent comment belongs to another post")
			}
		}

		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func ownedComment(tx *gorm.DB, userID, commentID int64) (*domain.Comment, error) {
	var c domain.Comment
	err := tx.Clauses(forUpdate()).
		Where("id = ? AND author_id IN (?)", commentID, userProfileIDs(tx, userID)).
		Take(&c).Error
	if err != nil {
		return nil, wrapErr(err, "comment", commentID)
	}
	return &c, nil
}

func (s *Store) UpdateComment(ctx context.Context, userID, commentID int64, text string) (*domain.Comment, error) {
	var c *domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = ownedComment(tx, userID, commentID)
		if err != nil {
			return err
		}
		if c.Deleted {
			return fmt.Errorf("comment %d: %w", commentID, domain.ErrNotFound)
		}
		if err := domain.ValidateCommentText(text); err != nil {
			return err
		}
		c.Text = text
		c.Changed = true
		c.UpdatedAt = time.Now()
		return tx.Model(&domain.Comment{ID: c.ID}).Updates(map[string]any{
			"text":       c.Text,
			"changed":    true,
			"updated_at": c.UpdatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) DeleteComment(ctx context.Context, userID, commentID int64) (*domain.Comment, error) {
	var c *domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = ownedComment(tx, userID, commentID)
		if err != nil || c.Deleted {
			return err
		}
		c.Deleted = true
		c.UpdatedAt = time.Now()
		return tx.Model(&domain.Comment{ID: c.ID}).Updates(map[string]any{
			"deleted":    true,
			"updated_at": c.UpdatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var c domain.Comment
	if err := s.db.WithContext(ctx).Take(&c, id).Error; err != nil {
		return nil, wrapErr(err, "comment", id)
	}
	return &c, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

// === Reaction Methods ===

// lockTarget берет разделяемую блокировку на цель, чтобы ее не удалили до конца транзакции.
func lockTarget(tx *gorm.DB, t domain.Target) error {
	share := clause.Locking{Strength: "SHARE"}
	var err error
	switch t.Kind {
	case domain.TargetPost:
		var p domain.Post
		err = tx.Clauses(share).Select("id").Take(&p, t.ID).Error
	case domain.TargetComment:
		var c domain.Comment
		err = tx.Clauses(share).Select("id").Where("NOT deleted").Take(&c, t.ID).Error
	default:
		err = gorm.ErrRecordNotFound
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", t, domain.ErrNotFound)
	}
	return err
}

const toggleAttempts = 3

// lockReactionKey сериализует переключения одной пары (профиль, цель)
// advisory-блокировкой до конца транзакции.
func lockReactionKey(tx *gorm.DB, profileID int64, t domain.Target) error {
	key := fmt.Sprintf("reaction:%d:%s", profileID, t)
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error
}

func (s *Store) ToggleReaction(ctx context.Context, profileID int64, target domain.Target, value domain.ReactionValue) (domain.ReactionToggle, error) {
	if !value.Valid() {
		return domain.ReactionToggle{}, domain.NewValidationError("reaction", "must be like or dislike")
	}

	var result domain.ReactionToggle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile domain.Profile
		if err := tx.Select("id").Take(&profile, profileID).Error; err != nil {
			return wrapErr(err, "profile", profileID)
		}
		if err := lockTarget(tx, target); err != nil {
			return err
		}
		if err := lockReactionKey(tx, profileID, target); err != nil {
			return err
		}

		// Вставка с ON CONFLICT DO NOTHING создает строку, если ее нет. Иначе строка
		// блокируется и либо удаляется (то же значение), либо меняет значение.
		// Если строку удалили между вставкой и чтением, пробуем снова.
		for attempt := 0; attempt < toggleAttempts; attempt++ {
			r := domain.Reaction{
				ProfileID:  profileID,
				TargetKind: target.Kind,
				TargetID:   target.ID,
				Value:      value,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "profile_id"}, {Name: "target_kind"}, {Name: "target_id"}},
				DoNothing: true,
			}).Create(&r)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				result = domain.ReactionToggle{Outcome: domain.ReactionCreated, Reaction: &r}
				return nil
			}

			var existing domain.Reaction
			err := tx.Clauses(forUpdate()).
				Where("profile_id = ? AND target_kind = ? AND target_id = ?", profileID, target.Kind, target.ID).
				Take(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			if existing.Value == value {
				if err := tx.Delete(&existing).Error; err != nil {
					return err
				}
				result = domain.ReactionToggle{Outcome: domain.ReactionRemoved}
				return nil
			}
			if err := tx.Model(&existing).Update("value", value).Error; err != nil {
				return err
			}
			existing.Value = value
			result = domain.ReactionToggle{Outcome: domain.ReactionChanged, Reaction: &existing}
			return nil
		}
		return fmt.Errorf("toggle reaction on %s: concurrent updates did not settle", target)
	})
	if err != nil {
		return domain.ReactionToggle{}, err
	}
	return result, nil
}

type reactionCountRow struct {
	TargetKind domain.TargetKind
	TargetID   int64
	Value      domain.ReactionValue
	N          int64
}

func (s *Store) ReactionCounts(ctx context.Context, targets []domain.Target) (map[domain.Target]domain.ReactionCounts, error) {
	result := make(map[domain.Target]domain.ReactionCounts, len(targets))
	if len(targets) == 0 {
		return result, nil
	}
	var postIDs, commentIDs []int64
	for _, t := range targets {
		result[t] = domain.ReactionCounts{}
		switch t.Kind {
		case domain.TargetPost:
			postIDs = append(postIDs, t.ID)
		case domain.TargetComment:
			commentIDs = append(commentIDs, t.ID)
		}
	}

	var rows []reactionCountRow
	err := s.db.WithContext(ctx).Model(&domain.Reaction{}).
		Select("target_kind, target_id, value, count(*) AS n").
		Where("(target_kind = ? AND target_id IN ?) OR (target_kind = ? AND target_id IN ?)",
			domain.TargetPost, postIDs, domain.TargetComment, commentIDs).
		Group("target_kind, target_id, value").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		t := domain.Target{Kind: row.TargetKind, ID: row.TargetID}
		c := result[t]
		c.Add(row.Value, row.N)
		result[t] = c
	}
	return result, nil
}

// === Follow Methods ===

func (s *Store) Follow(ctx context.Context, senderID, recipientID int64) (*domain.Follow, error) {
	var f domain.Follow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []int64{senderID, recipientID} {
			var p domain.Profile
			if err := tx.Select("id").Take(&p, id).Error; err != nil {
				return wrapErr(err, "profile", id)
			}
		}
		if senderID == recipientID {
			return domain.NewValidationError("profile", "cannot follow yourself")
		}

		f = domain.Follow{SenderID: senderID, RecipientID: recipientID}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recipient_id"}, {Name: "sender_id"}},
			DoNothing: true,
		}).Create(&f)
		if res.Error != nil || res.RowsAffected == 1 {
			return res.Error
		}
		return tx.Where("sender_id = ? AND recipient_id = ?", senderID, recipientID).Take(&f).Error
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) Unfollow(ctx context.Context, senderID, recipientID int64) error {
	res := s.db.WithContext(ctx).
		Where("sender_id = ? AND recipient_id = ?", senderID, recipientID).
		Delete(&domain.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("follow %d->%d: %w", senderID, recipientID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, senderID, recipientID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("sender_id = ? AND recipient_id = ?", senderID, recipientID).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) followProfiles(ctx context.Context, pick, match string, profileID int64) ([]*domain.Profile, error) {
	var profiles []*domain.Profile
	sub := s.db.Model(&domain.Follow{}).Select(pick).Where(match+" = ?", profileID)
	err := s.db.WithContext(ctx).Where("id IN (?)", sub).Order("user_id, name, id").Find(&profiles).Error
	return profiles, err
}

func (s *Store) GetFollowers(ctx context.Context, profileID int64) ([]*domain.Profile, error) {
	return s.followProfiles(ctx, "sender_id", "recipient_id", profileID)
}

func (s *Store) GetFollowing(ctx context.Context, profileID int64) ([]*domain.Profile, error) {
	return s.followProfiles(ctx, "recipient_id", "sender_id", profileID)
}

func (s *Store) GetFollowStats(ctx context.Context, profileID int64) (domain.FollowStats, error) {
	var stats domain.FollowStats
	db := s.db.WithContext(ctx).Model(&domain.Follow{})
	if err := db.Where("recipient_id = ?", profileID).Count(&stats.Followers).Error; err != nil {
		return stats, err
	}
	if err := s.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("sender_id = ?", profileID).Count(&stats.Following).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
