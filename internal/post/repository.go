package post

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medportal/portal-backend/internal/store"
)

var (
	ErrNotFound     = errors.New("post not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	Create(ctx context.Context, p Post) (Post, error)
	List(ctx context.Context) ([]Post, error)
	// Delete removes postID. An empty ownerID removes it regardless of
	// author. It reports whether a row was removed.
	Delete(ctx context.Context, postID int64, ownerID string) (bool, error)
	CreateComment(ctx context.Context, c Comment) (Comment, error)
	Like(ctx context.Context, userID string, postID int64) (Like, error)
	Unlike(ctx context.Context, userID string, postID int64) error
	LikedPostIDs(ctx context.Context, userID string) ([]int64, error)
}

// InMemoryRepository is used for tests and local scenarios. It enforces the
// same key and reference constraints as the store schema and reports
// violations with the same SQLSTATE codes.
type InMemoryRepository struct {
	mu       sync.RWMutex
	posts    []Post
	comments []Comment
	likes    []Like
	authors  map[string]Author
	nextID   int64
	now      func() time.Time
}

func NewInMemoryRepository(authors []Author) *InMemoryRepository {
	r := &InMemoryRepository{authors: make(map[string]Author, len(authors)), now: time.Now}
	for _, a := range authors {
		r.authors[a.ID] = a
	}
	return r
}

func constraintError(code, detail string) error {
	return &pgconn.PgError{Code: code, Detail: detail, Message: "constraint violation"}
}

func (r *InMemoryRepository) Create(ctx context.Context, p Post) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authors[p.UserID]; !ok {
		return Post{}, constraintError(store.CodeForeignKeyViolation, "Key (user_id) is not present in table \"users\".")
	}
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = r.now().UTC()
	p.Author, p.Comments, p.Likes = nil, make([]Comment, 0), make([]Like, 0)
	r.posts = append(r.posts, p)
	return p, nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Post, 0, len(r.posts))
	for _, p := range r.posts {
		if a, ok := r.authors[p.UserID]; ok {
			p.Author = &a
		}
		p.Comments = make([]Comment, 0)
		for _, c := range r.comments {
			if c.PostID == p.ID {
				if a, ok := r.authors[c.UserID]; ok {
					c.Author = &a
				}
				p.Comments = append(p.Comments, c)
			}
		}
		p.Likes = make([]Like, 0)
		for _, l := range r.likes {
			if l.PostID == p.ID {
				p.Likes = append(p.Likes, l)
			}
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, postID int64, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.posts {
		if p.ID != postID {
			continue
		}
		if ownerID != "" && p.UserID != ownerID {
			return false, nil
		}
		r.posts = append(r.posts[:i], r.posts[i+1:]...)
		r.comments = filter(r.comments, func(c Comment) bool { return c.PostID != postID })
		r.likes = filter(r.likes, func(l Like) bool { return l.PostID != postID })
		return true, nil
	}
	return false, nil
}

func (r *InMemoryRepository) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRefs(c.UserID, c.PostID); err != nil {
		return Comment{}, err
	}
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = r.now().UTC()
	c.Author = nil
	r.comments = append(r.comments, c)
	return c, nil
}

func (r *InMemoryRepository) Like(ctx context.Context, userID string, postID int64) (Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRefs(userID, postID); err != nil {
		return Like{}, err
	}
	for _, l := range r.likes {
		if l.UserID == userID && l.PostID == postID {
			return Like{}, constraintError(store.CodeUniqueViolation, "Key (user_id, post_id) already exists.")
		}
	}
	l := Like{UserID: userID, PostID: postID, CreatedAt: r.now().UTC()}
	r.likes = append(r.likes, l)
	return l, nil
}

func (r *InMemoryRepository) Unlike(ctx context.Context, userID string, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.likes = filter(r.likes, func(l Like) bool { return l.UserID != userID || l.PostID != postID })
	return nil
}

func (r *InMemoryRepository) LikedPostIDs(ctx context.Context, userID string) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0)
	for _, l := range r.likes {
		if l.UserID == userID {
			ids = append(ids, l.PostID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// checkRefs must be called with mu held.
func (r *InMemoryRepository) checkRefs(userID string, postID int64) error {
	if _, ok := r.authors[userID]; !ok {
		return constraintError(store.CodeForeignKeyViolation, "Key (user_id) is not present in table \"users\".")
	}
	for _, p := range r.posts {
		if p.ID == postID {
			return nil
		}
	}
	return constraintError(store.CodeForeignKeyViolation, "Key (post_id) is not present in table \"posts\".")
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
