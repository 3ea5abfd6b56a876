package models

import "time"

// NotificationType is the kind of event a notification records
type NotificationType string

const (
	NotificationLike NotificationType = "like"
)

// User represents an account. PasswordHash and PushToken never leave the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	ProfileImg   string    `json:"profile_img"`
	CoverImg     string    `json:"cover_img"`
	Bio          string    `json:"bio"`
	Link         string    `json:"link"`
	PushToken    *string   `json:"-"`
	Followers    []string  `json:"followers"`
	Following    []string  `json:"following"`
	LikedPosts   []string  `json:"liked_posts"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsFollowing reports whether u follows userID
func (u *User) IsFollowing(userID string) bool {
	return contains(u.Following, userID)
}

// Author is the subset of a user embedded in posts, comments and notifications
type Author struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	ProfileImg string `json:"profile_img"`
	CoverImg   string `json:"cover_img,omitempty"`
}

// Post represents a post owned by exactly one user
type Post struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	User      *Author    `json:"user"`
	Text      string     `json:"text,omitempty"`
	Img       string     `json:"img,omitempty"`
	Likes     []string   `json:"likes"`
	Comments  []*Comment `json:"comments"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LikedBy reports whether userID is in the post's liking set
func (p *Post) LikedBy(userID string) bool {
	return contains(p.Likes, userID)
}

// Comment is embedded in a post and ordered by append time
type Comment struct {
	UserID    string    `json:"-"`
	User      *Author   `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification records that From caused an event on content owned by To
type Notification struct {
	ID        string           `json:"id"`
	FromID    string           `json:"-"`
	From      *Author          `json:"from"`
	ToID      string           `json:"to"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
