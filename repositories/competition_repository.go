package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/fair-measure/models"
	"github.com/google/uuid"
)

var (
	ErrCompetitionNotFound     = errors.New("competition not found")
	ErrCompetitionOwnerInvalid = errors.New("competition owner conflict or invalid")
	ErrCompetitionTypeInvalid  = errors.New("competition type violation")
)

type CompetitionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, competition *models.Competition) error
	GetByID(ctx context.Context, id string) (*models.Competition, error)
	List(ctx context.Context, filter models.CompetitionFilter, userID string) ([]*models.Competition, error)
}

type postgresCompetitionRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &postgresCompetitionRepository{db: db}
}

func (r *postgresCompetitionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresCompetitionRepository) Create(ctx context.Context, exec SQLExecutor, c *models.Competition) error {
	executor := r.getExecutor(exec)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query := `
		INSERT INTO competitions (id, name, type, is_private, owner_id, author)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query,
		c.ID,
		c.Name,
		c.Type,
		c.IsPrivate,
		c.OwnerID,
		c.Author,
	).Scan(&c.CreatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok {
			switch {
			case code == pqForeignKeyViolation && constraint == "competitions_owner_id_fkey":
				return ErrCompetitionOwnerInvalid
			case code == pqCheckViolation:
				return ErrCompetitionTypeInvalid
			}
		}
		return fmt.Errorf("failed to create competition: %w", err)
	}
	return nil
}

const competitionSelect = `
	SELECT c.id, c.name, c.type, c.is_private, c.owner_id, c.author, c.created_at,
	       (SELECT COUNT(*) FROM competition_members cm WHERE cm.competition_id = c.id) AS member_count
	FROM competitions c`

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, id string) (*models.Competition, error) {
	row := r.db.QueryRowContext(ctx, competitionSelect+` WHERE c.id = $1`, id)
	c, err := scanCompetition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %s: %w", id, err)
	}
	return c, nil
}

func (r *postgresCompetitionRepository) List(ctx context.Context, filter models.CompetitionFilter, userID string) ([]*models.Competition, error) {
	var (
		query string
		args  []interface{}
	)
	switch filter {
	case models.FilterOwned:
		query = competitionSelect + ` WHERE c.owner_id = $1`
		args = append(args, userID)
	case models.FilterMember:
		// Соревнования, где пользователь участник, но не владелец.
		query = competitionSelect + `
			WHERE c.id IN (
				SELECT competition_id FROM competition_members
				WHERE user_id = $1 AND role <> 'owner'
			)`
		args = append(args, userID)
	default:
		query = competitionSelect
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions (filter %s): %w", filter, err)
	}
	defer rows.Close()

	competitions := make([]*models.Competition, 0)
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competition: %w", err)
		}
		competitions = append(competitions, c)
	}
	return competitions, rows.Err()
}

func scanCompetition(row rowScanner) (*models.Competition, error) {
	c := &models.Competition{}
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Type,
		&c.IsPrivate,
		&c.OwnerID,
		&c.Author,
		&c.CreatedAt,
		&c.MemberCount,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
