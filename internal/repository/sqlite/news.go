package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/validation"
)

var _ repository.NewsRepository = (*NewsDB)(nil)

// NewsDB stores news items in the news table.
type NewsDB struct {
	conn     *sql.DB
	validate *validation.Validator
	now      func() time.Time
}

const newsColumns = `id, title, content, image, category, author, created_at`

func (n *NewsDB) Create(ctx context.Context, news *model.News) error {
	news.Normalize()
	if err := n.validate.Struct(news); err != nil {
		return err
	}

	news.ID = xid.New().String()
	news.CreatedAt = n.now()

	_, err := n.conn.ExecContext(ctx,
		`INSERT INTO news (`+newsColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		news.ID,
		news.Title,
		news.Content,
		news.Image,
		string(news.Category),
		news.Author,
		toMillis(news.CreatedAt),
	)
	if err != nil {
		news.ID = ""
		return fmt.Errorf("sqlite: inserting news: %w", err)
	}
	return nil
}

func (n *NewsDB) GetByID(ctx context.Context, id string) (*model.News, error) {
	row := n.conn.QueryRowContext(ctx, `SELECT `+newsColumns+` FROM news WHERE id = ?`, id)
	news, err := scanNews(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("news", id)
		}
		return nil, fmt.Errorf("sqlite: getting news %s: %w", id, err)
	}
	return news, nil
}

// List returns the newest items first. xids sort by creation time, so the
// id tie-break keeps same-millisecond items newest first too.
func (n *NewsDB) List(ctx context.Context, f repository.NewsFilter) ([]model.News, error) {
	query := `SELECT ` + newsColumns + ` FROM news`
	var args []any
	if f.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(f.Category))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := n.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing news: %w", err)
	}
	defer rows.Close()

	items := []model.News{}
	for rows.Next() {
		news, err := scanNews(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning news row: %w", err)
		}
		items = append(items, *news)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating news: %w", err)
	}
	return items, nil
}

func (n *NewsDB) UpdateByID(ctx context.Context, id string, patch model.NewsPatch) (*model.News, error) {
	current, err := n.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	patch.Apply(&updated)
	if err := n.validate.Struct(&updated); err != nil {
		return nil, err
	}

	result, err := n.conn.ExecContext(ctx,
		`UPDATE news SET title = ?, content = ?, image = ?, category = ? WHERE id = ?`,
		updated.Title,
		updated.Content,
		updated.Image,
		string(updated.Category),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating news %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("news", id)
	}
	return &updated, nil
}

func (n *NewsDB) DeleteByID(ctx context.Context, id string) error {
	result, err := n.conn.ExecContext(ctx, `DELETE FROM news WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting news %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("news", id)
	}
	return nil
}

func (n *NewsDB) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := n.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM news`).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: counting news: %w", err)
	}
	return count, nil
}

func scanNews(row rowScanner) (*model.News, error) {
	var (
		news      model.News
		category  string
		createdAt int64
	)
	err := row.Scan(
		&news.ID,
		&news.Title,
		&news.Content,
		&news.Image,
		&category,
		&news.Author,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	news.Category = model.Category(category)
	news.CreatedAt = fromMillis(createdAt)
	return &news, nil
}
