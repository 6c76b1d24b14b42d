package post

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	insertPostQuery = `
		INSERT INTO posts (user_id, content, image_url, video_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, content, image_url, video_url, created_at
	`
	// listPostsQuery loads the whole feed in one round trip: every post
	// newest first with its author, its comments (oldest first, each with
	// its author) and its likes.
	listPostsQuery = `
		SELECT p.id, p.user_id, p.content, p.image_url, p.video_url, p.created_at,
			json_build_object('id', u.id, 'name', u.name, 'avatar_url', u.avatar_url, 'status', u.status, 'role', u.role) AS author,
			COALESCE((
				SELECT json_agg(json_build_object(
					'id', c.id,
					'user_id', c.user_id,
					'post_id', c.post_id,
					'content', c.content,
					'created_at', c.created_at,
					'author', json_build_object('id', cu.id, 'name', cu.name, 'avatar_url', cu.avatar_url, 'status', cu.status, 'role', cu.role)
				) ORDER BY c.created_at, c.id)
				FROM comments c
				JOIN users cu ON cu.id = c.user_id
				WHERE c.post_id = p.id
			), '[]'::json) AS comments,
			COALESCE((
				SELECT json_agg(json_build_object('user_id', l.user_id, 'post_id', l.post_id, 'created_at', l.created_at) ORDER BY l.created_at)
				FROM likes l
				WHERE l.post_id = p.id
			), '[]'::json) AS likes
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC, p.id DESC
	`
	deletePostQuery    = `DELETE FROM posts WHERE id = $1`
	deleteOwnPostQuery = `DELETE FROM posts WHERE id = $1 AND user_id = $2`
	insertCommentQuery = `
		INSERT INTO comments (user_id, post_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, post_id, content, created_at
	`
	insertLikeQuery = `
		INSERT INTO likes (user_id, post_id)
		VALUES ($1, $2)
		RETURNING user_id, post_id, created_at
	`
	deleteLikeQuery   = `DELETE FROM likes WHERE user_id = $1 AND post_id = $2`
	likedPostIDsQuery = `
		SELECT COALESCE(array_agg(post_id ORDER BY post_id), '{}')
		FROM likes
		WHERE user_id = $1
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p Post) (Post, error) {
	var (
		out   Post
		image sql.NullString
		video sql.NullString
	)
	err := r.db.QueryRowContext(ctx, insertPostQuery, p.UserID, p.Content, nullString(p.ImageURL), nullString(p.VideoURL)).
		Scan(&out.ID, &out.UserID, &out.Content, &image, &video, &out.CreatedAt)
	if err != nil {
		return Post{}, err
	}
	out.ImageURL = stringPtr(image)
	out.VideoURL = stringPtr(video)
	out.Comments, out.Likes = make([]Comment, 0), make([]Like, 0)
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Post, error) {
	rows, err := r.db.QueryContext(ctx, listPostsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		var (
			p                       Post
			image, video            sql.NullString
			author, comments, likes []byte
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Content, &image, &video, &p.CreatedAt, &author, &comments, &likes); err != nil {
			return nil, err
		}
		p.ImageURL = stringPtr(image)
		p.VideoURL = stringPtr(video)
		p.Author = new(Author)
		if err := json.Unmarshal(author, p.Author); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(comments, &p.Comments); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(likes, &p.Likes); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, postID int64, ownerID string) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if ownerID == "" {
		res, err = r.db.ExecContext(ctx, deletePostQuery, postID)
	} else {
		res, err = r.db.ExecContext(ctx, deleteOwnPostQuery, postID, ownerID)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	var out Comment
	err := r.db.QueryRowContext(ctx, insertCommentQuery, c.UserID, c.PostID, c.Content).
		Scan(&out.ID, &out.UserID, &out.PostID, &out.Content, &out.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Like(ctx context.Context, userID string, postID int64) (Like, error) {
	var out Like
	err := r.db.QueryRowContext(ctx, insertLikeQuery, userID, postID).
		Scan(&out.UserID, &out.PostID, &out.CreatedAt)
	if err != nil {
		return Like{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Unlike(ctx context.Context, userID string, postID int64) error {
	_, err := r.db.ExecContext(ctx, deleteLikeQuery, userID, postID)
	return err
}

func (r *PostgresRepository) LikedPostIDs(ctx context.Context, userID string) ([]int64, error) {
	var ids []int64
	if err := r.db.QueryRowContext(ctx, likedPostIDsQuery, userID).Scan(pq.Array(&ids)); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
