package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/validation"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores users in the users table.
type UserDB struct {
	conn     *sql.DB
	validate *validation.Validator
	now      func() time.Time
}

const userColumns = `id, name, email, password, gender, batch_year, phone_number,
	show_phone_number, house, address, profile_picture, occupation,
	occupation_sub_field, participation, custom_participation, role, created_at`

// Create normalises and validates user, gives it an xid and inserts it.
// A taken email comes back as apperror.Duplicate("email").
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.Normalize()
	if err := u.validate.Struct(user); err != nil {
		return err
	}

	user.ID = xid.New().String()
	user.CreatedAt = u.now()

	args, err := userArgs(user)
	if err != nil {
		return err
	}
	_, err = u.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{user.ID}, args...)...,
	)
	if err != nil {
		user.ID = ""
		if isUniqueViolation(err) {
			return apperror.Duplicate("email")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}
	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	row := u.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// List builds the WHERE clause from the non-zero filter fields. Only
// placeholders are appended to the query text; values travel as arguments.
func (u *UserDB) List(ctx context.Context, f repository.UserFilter) ([]model.User, error) {
	var (
		where []string
		args  []any
	)
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(f.Role))
	}
	if f.BatchYear != 0 {
		where = append(where, "batch_year = ?")
		args = append(args, f.BatchYear)
	}
	if f.House != "" {
		where = append(where, "house = ?")
		args = append(args, string(f.House))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name, id`

	rows, err := u.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// UpdateByID reads the user, applies patch, validates the result and writes
// every mutable column back. id and created_at never change.
func (u *UserDB) UpdateByID(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	current, err := u.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	patch.Apply(&updated)
	if err := u.validate.Struct(&updated); err != nil {
		return nil, err
	}

	args, err := userArgs(&updated)
	if err != nil {
		return nil, err
	}
	// userArgs ends with role and created_at, which an update leaves alone.
	args = append(args[:len(args)-2], id)

	result, err := u.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password = ?, gender = ?, batch_year = ?,
			phone_number = ?, show_phone_number = ?, house = ?, address = ?,
			profile_picture = ?, occupation = ?, occupation_sub_field = ?,
			participation = ?, custom_participation = ?
		 WHERE id = ?`,
		args...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Duplicate("email")
		}
		return nil, fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("user", id)
	}
	return &updated, nil
}

func (u *UserDB) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var n int64
	err := u.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, string(role)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting %s users: %w", role, err)
	}
	return n, nil
}

// userArgs returns the column values after id, in userColumns order.
func userArgs(user *model.User) ([]any, error) {
	var occupation, subField, custom string
	categories := []string{}
	if user.Occupation != nil {
		occupation, subField = user.Occupation.Field, user.Occupation.SubField
	}
	if user.Participation != nil {
		if user.Participation.Categories != nil {
			categories = user.Participation.Categories
		}
		custom = user.Participation.Custom
	}
	participation, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding participation: %w", err)
	}

	return []any{
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Gender),
		user.BatchYear,
		user.PhoneNumber,
		user.ShowPhoneNumber,
		string(user.House),
		user.Address,
		user.ProfilePicture,
		occupation,
		subField,
		string(participation),
		custom,
		string(user.Role),
		toMillis(user.CreatedAt),
	}, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user                                        model.User
		gender, house, role                         string
		occupation, subField, participation, custom string
		createdAt                                   int64
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&gender,
		&user.BatchYear,
		&user.PhoneNumber,
		&user.ShowPhoneNumber,
		&house,
		&user.Address,
		&user.ProfilePicture,
		&occupation,
		&subField,
		&participation,
		&custom,
		&role,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	user.Gender = model.Gender(gender)
	user.House = model.House(house)
	user.Role = model.Role(role)
	user.CreatedAt = fromMillis(createdAt)

	if occupation != "" {
		user.Occupation = &model.Occupation{Field: occupation, SubField: subField}
	}
	var categories []string
	if err := json.Unmarshal([]byte(participation), &categories); err != nil {
		return nil, fmt.Errorf("decoding participation: %w", err)
	}
	if len(categories) > 0 || custom != "" {
		user.Participation = &model.Participation{Categories: categories, Custom: custom}
	}
	return &user, nil
}
