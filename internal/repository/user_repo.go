package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"smartchef/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	// FindOrCreate inserta el usuario si el id no existe y devuelve el
	// registro ganador. El bool indica si esta llamada creo el registro.
	FindOrCreate(ctx context.Context, user domain.User) (domain.User, bool, error)
	UpdateProfile(ctx context.Context, user domain.User) error
	UpdateQuota(ctx context.Context, id string, usedDaily, usedWeekly int, lastReset time.Time) error
}

const userColumns = `
	id, email, display_name, provider, password_hash, picture,
	level, points, favorites, is_premium,
	daily_limit, weekly_limit, used_daily, used_weekly, last_reset, created_at
`

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanRow(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND email <> '' LIMIT 1`
	return r.scanRow(r.pool.QueryRow(ctx, query, email))
}

// FindOrCreate cierra la carrera de primeros logins concurrentes: el INSERT
// con ON CONFLICT DO NOTHING es atomico, el perdedor relee el registro del
// ganador en lugar de duplicarlo.
func (r *PgUserRepository) FindOrCreate(ctx context.Context, user domain.User) (domain.User, bool, error) {
	const query = `
		INSERT INTO users (
			id, email, display_name, provider, password_hash, picture,
			level, points, favorites, is_premium,
			daily_limit, weekly_limit, used_daily, used_weekly, last_reset, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.Provider,
		user.PasswordHash,
		user.Picture,
		user.Level,
		user.Points,
		user.Favorites,
		user.IsPremium,
		user.DailyLimit,
		user.WeeklyLimit,
		user.UsedDaily,
		user.UsedWeekly,
		user.LastReset,
		user.CreatedAt,
	)
	if err != nil {
		return domain.User{}, false, err
	}
	if tag.RowsAffected() == 1 {
		return user, true, nil
	}

	existing, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return domain.User{}, false, err
	}
	return existing, false, nil
}

// UpdateProfile sobreescribe solo los campos mutables; id, provider y
// password_hash nunca se tocan por esta via.
func (r *PgUserRepository) UpdateProfile(ctx context.Context, user domain.User) error {
	const query = `
		UPDATE users
		SET display_name = $2, picture = $3, level = $4, points = $5,
		    favorites = $6, is_premium = $7
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		user.DisplayName,
		user.Picture,
		user.Level,
		user.Points,
		user.Favorites,
		user.IsPremium,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateQuota persiste contadores y marca de reset. last_reset nunca
// retrocede; el GREATEST protege contra escrituras fuera de orden.
func (r *PgUserRepository) UpdateQuota(ctx context.Context, id string, usedDaily, usedWeekly int, lastReset time.Time) error {
	const query = `
		UPDATE users
		SET used_daily = $2, used_weekly = $3,
		    last_reset = GREATEST(COALESCE(last_reset, $4), $4)
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, usedDaily, usedWeekly, lastReset)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) scanRow(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.Provider,
		&u.PasswordHash,
		&u.Picture,
		&u.Level,
		&u.Points,
		&u.Favorites,
		&u.IsPremium,
		&u.DailyLimit,
		&u.WeeklyLimit,
		&u.UsedDaily,
		&u.UsedWeekly,
		&u.LastReset,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}
