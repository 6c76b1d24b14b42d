package user

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns = `id, email, password_hash, name, avatar_url, status, role, phone, created_at, updated_at`

	listUsersQuery = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at
	`
	getUserByIDQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	getUserByEmailQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`
	insertUserQuery = `
		INSERT INTO users (id, email, password_hash, name, avatar_url, status, role, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns
	updateProfileQuery = `
		UPDATE users
		SET name = COALESCE($2, name),
			avatar_url = COALESCE($3, avatar_url),
			phone = COALESCE($4, phone),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	setStatusQuery = `
		UPDATE users
		SET status = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	setRoleQuery = `
		UPDATE users
		SET role = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	return scanOne(r.db.QueryRowContext(ctx, getUserByIDQuery, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanOne(r.db.QueryRowContext(ctx, getUserByEmailQuery, email))
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	return scanOne(r.db.QueryRowContext(ctx, insertUserQuery,
		u.ID,
		u.Email,
		u.Password,
		u.Name,
		nullString(u.AvatarURL),
		u.Status,
		u.Role,
		nullString(u.Phone),
	))
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, p Profile) (User, error) {
	return scanOne(r.db.QueryRowContext(ctx, updateProfileQuery, id,
		nullString(p.Name),
		nullString(p.AvatarURL),
		nullString(p.Phone),
	))
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, s Status) (User, error) {
	return scanOne(r.db.QueryRowContext(ctx, setStatusQuery, id, s))
}

func (r *PostgresRepository) SetRole(ctx context.Context, id string, role Role) (User, error) {
	return scanOne(r.db.QueryRowContext(ctx, setRoleQuery, id, role))
}

func scanOne(row rowScanner) (User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func scanUser(scanner rowScanner) (User, error) {
	var (
		u      User
		avatar sql.NullString
		phone  sql.NullString
		status string
		role   string
	)
	if err := scanner.Scan(
		&u.ID,
		&u.Email,
		&u.Password,
		&u.Name,
		&avatar,
		&status,
		&role,
		&phone,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return User{}, err
	}
	u.Status = Status(status)
	u.Role = Role(role)
	if avatar.Valid {
		u.AvatarURL = &avatar.String
	}
	if phone.Valid {
		u.Phone = &phone.String
	}
	return u, nil
}

// nullString sends a raw nil for absent values so the column is set to NULL
// (or left alone under COALESCE) instead of an empty string.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
