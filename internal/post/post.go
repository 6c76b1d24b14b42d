package post

import "time"

// Author is the public slice of a user shown next to posts and comments.
type Author struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
	Status    string  `json:"status"`
	Role      string  `json:"role"`
}

// Media holds the optional attachments of a post. Nil means absent.
type Media struct {
	ImageURL *string `json:"image_url,omitempty"`
	VideoURL *string `json:"video_url,omitempty"`
}

type Post struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
	VideoURL  *string   `json:"video_url"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"author,omitempty"`
	Comments  []Comment `json:"comments"`
	Likes     []Like    `json:"likes"`
}

type Comment struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	PostID    int64     `json:"post_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"author,omitempty"`
}

// Like exists while a user likes a post; (UserID, PostID) is unique.
type Like struct {
	UserID    string    `json:"user_id"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
