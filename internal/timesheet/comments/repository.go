package comments

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists declaration comments.
type Repository interface {
	Insert(ctx context.Context, c Comment) (Comment, error)
	ListForDeclaration(ctx context.Context, declarationID int64) ([]Comment, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, c Comment) (Comment, error) {
	const query = `
INSERT INTO declaration_comments (declaration_id, author_id, author_name, author_role, content)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		c.DeclarationID, c.AuthorID, c.AuthorName, c.AuthorRole, c.Content).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (r *repository) ListForDeclaration(ctx context.Context, declarationID int64) ([]Comment, error) {
	const query = `
SELECT id, declaration_id, author_id, author_name, author_role, content, created_at
FROM declaration_comments
WHERE declaration_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, declarationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.DeclarationID, &c.AuthorID, &c.AuthorName,
			&c.AuthorRole, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
