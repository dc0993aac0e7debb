package domain

import "time"

// User - учетная запись. Действует от имени одного из своих профилей.
type User struct {
	ID           int64      `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"type:varchar(150);not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"not null;default:now()"`
	Profiles     []*Profile `json:"-" gorm:"foreignKey:UserID"` // gorm only
}

// Profile - один из профилей пользователя. У пользователя активен ровно один профиль.
type Profile struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	UserID    int64      `json:"userId" gorm:"not null;index"`
	Name      string     `json:"name" gorm:"type:varchar(100);not null"`
	Slug      string     `json:"slug" gorm:"type:varchar(150);not null;uniqueIndex"`
	About     string     `json:"about,omitempty" gorm:"type:varchar(500);not null;default:''"`
	Birthday  *time.Time `json:"birthday,omitempty" gorm:"type:date"`
	Active    bool       `json:"active" gorm:"not null;default:false"`
	CreatedAt time.Time  `json:"createdAt" gorm:"not null;default:now()"`
}

// Post представляет пост в системе.
type Post struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"type:varchar(100);not null"`
	Caption   string    `json:"caption" gorm:"type:text;not null"`
	Picture   *string   `json:"picture,omitempty" gorm:"type:varchar(255)"`
	AuthorID  int64     `json:"authorId" gorm:"not null;index"`
	Archived  bool      `json:"archived" gorm:"not null;default:false"`
	Changed   bool      `json:"changed" gorm:"not null;default:false"`
	Views     int64     `json:"views" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;default:now()"`
	Author    *Profile  `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Tags      []*Tag    `json:"tags" gorm:"many2many:post_tags"`
}

// Tag - хэштег поста. Title является ключом дедупликации.
type Tag struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	Title    string `json:"title" gorm:"type:varchar(50);not null;uniqueIndex"`
	Slug     string `json:"slug" gorm:"type:varchar(80);not null;uniqueIndex"`
	AuthorID *int64 `json:"authorId,omitempty" gorm:"index"`
}

// PostTag - строка связующей таблицы post_tags.
type PostTag struct {
	PostID int64 `gorm:"primaryKey"`
	TagID  int64 `gorm:"primaryKey"`
}

// Comment представляет комментарий к посту. Удаление мягкое.
type Comment struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	PostID    int64     `json:"postId" gorm:"not null;index"`
	ParentID  *int64    `json:"parentId,omitempty" gorm:"index"`
	AuthorID  int64     `json:"authorId" gorm:"not null;index"`
	Text      string    `json:"text" gorm:"type:varchar(2000);not null"`
	Deleted   bool      `json:"deleted" gorm:"not null;default:false"`
	Changed   bool      `json:"changed" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;default:now()"`
}

// Reaction - лайк или дизлайк профиля на пост или комментарий.
type Reaction struct {
	ID         int64         `json:"id" gorm:"primaryKey"`
	ProfileID  int64         `json:"profileId" gorm:"not null;uniqueIndex:idx_reactions_profile_target"`
	TargetKind TargetKind    `json:"targetKind" gorm:"type:smallint;not null;uniqueIndex:idx_reactions_profile_target"`
	TargetID   int64         `json:"targetId" gorm:"not null;uniqueIndex:idx_reactions_profile_target"`
	Value      ReactionValue `json:"value" gorm:"type:smallint;not null"`
	CreatedAt  time.Time     `json:"createdAt" gorm:"not null;default:now()"`
}

// Target возвращает цель реакции.
func (r *Reaction) Target() Target {
	return Target{Kind: r.TargetKind, ID: r.TargetID}
}

// Follow - направленное ребро: Sender подписан на Recipient.
type Follow struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	RecipientID int64     `json:"recipientId" gorm:"not null;uniqueIndex:idx_follows_pair"`
	SenderID    int64     `json:"senderId" gorm:"not null;uniqueIndex:idx_follows_pair;index"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

type FollowStats struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}
