package post

import (
	"context"
	"strings"

	"github.com/medportal/portal-backend/internal/store"
)

// Service holds the feed's data-access functions. Each one validates its
// input, makes exactly one repository call and hands store failures back as
// *store.Error. Nothing is cached; callers re-read to observe writes.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreatePost(ctx context.Context, userID, content string, media Media) (Post, error) {
	if userID == "" || strings.TrimSpace(content) == "" {
		return Post{}, ErrInvalidInput
	}
	p, err := s.repo.Create(ctx, Post{
		UserID:   userID,
		Content:  content,
		ImageURL: media.ImageURL,
		VideoURL: media.VideoURL,
	})
	return p, store.Wrap("createPost", err)
}

// GetPosts returns the feed newest first.
func (s *Service) GetPosts(ctx context.Context) ([]Post, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, store.Wrap("getPosts", err)
	}
	return posts, nil
}

func (s *Service) LikePost(ctx context.Context, userID string, postID int64) (Like, error) {
	if userID == "" || postID <= 0 {
		return Like{}, ErrInvalidInput
	}
	l, err := s.repo.Like(ctx, userID, postID)
	return l, store.Wrap("likePost", err)
}

// UnlikePost is a no-op when the like does not exist.
func (s *Service) UnlikePost(ctx context.Context, userID string, postID int64) error {
	if userID == "" || postID <= 0 {
		return ErrInvalidInput
	}
	return store.Wrap("unlikePost", s.repo.Unlike(ctx, userID, postID))
}

func (s *Service) LikedPostIDs(ctx context.Context, userID string) ([]int64, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	ids, err := s.repo.LikedPostIDs(ctx, userID)
	if err != nil {
		return nil, store.Wrap("likedPostIds", err)
	}
	return ids, nil
}

func (s *Service) CreateComment(ctx context.Context, userID string, postID int64, content string) (Comment, error) {
	if userID == "" || postID <= 0 || strings.TrimSpace(content) == "" {
		return Comment{}, ErrInvalidInput
	}
	c, err := s.repo.CreateComment(ctx, Comment{UserID: userID, PostID: postID, Content: content})
	return c, store.Wrap("createComment", err)
}

// DeletePost removes a post with its comments and likes. A non-empty
// ownerID restricts the delete to that author's posts.
func (s *Service) DeletePost(ctx context.Context, postID int64, ownerID string) error {
	if postID <= 0 {
		return ErrInvalidInput
	}
	deleted, err := s.repo.Delete(ctx, postID, ownerID)
	if err != nil {
		return store.Wrap("deletePost", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
