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
	ErrMemberNotFound           = errors.New("member not found")
	ErrMemberConflict           = errors.New("member conflict: user is already a member of this competition")
	ErrMemberOwnerConflict      = errors.New("member conflict: competition already has an owner")
	ErrMemberUserInvalid        = errors.New("member user conflict or invalid")
	ErrMemberCompetitionInvalid = errors.New("member competition conflict or invalid")
)

type MemberRepository interface {
	Create(ctx context.Context, exec SQLExecutor, member *models.Member) error
	GetByID(ctx context.Context, id string) (*models.Member, error)
	FindByCompetitionAndUser(ctx context.Context, competitionID, userID string) (*models.Member, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]*models.Member, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Member, error)
	Delete(ctx context.Context, id string) error
}

type postgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) MemberRepository {
	return &postgresMemberRepository{db: db}
}

func (r *postgresMemberRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMemberRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Member) error {
	executor := r.getExecutor(exec)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `
		INSERT INTO competition_members (id, competition_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING joined_at`

	err := executor.QueryRowContext(ctx, query, m.ID, m.CompetitionID, m.UserID, m.Role).Scan(&m.JoinedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok {
			switch code {
			case pqUniqueViolation:
				switch constraint {
				case "competition_members_competition_id_user_id_key":
					return ErrMemberConflict
				case "competition_members_one_owner_idx":
					return ErrMemberOwnerConflict
				}
			case pqForeignKeyViolation:
				switch constraint {
				case "competition_members_user_id_fkey":
					return ErrMemberUserInvalid
				case "competition_members_competition_id_fkey":
					return ErrMemberCompetitionInvalid
				}
			}
		}
		return fmt.Errorf("failed to create competition member: %w", err)
	}
	return nil
}

const memberWithUserSelect = `
	SELECT cm.id, cm.competition_id, cm.user_id, cm.role, cm.joined_at,
	       u.id, u.full_name, u.email, u.avatar_key
	FROM competition_members cm
	JOIN users u ON u.id = cm.user_id`

func (r *postgresMemberRepository) GetByID(ctx context.Context, id string) (*models.Member, error) {
	return r.findOne(ctx, memberWithUserSelect+` WHERE cm.id = $1`, id)
}

func (r *postgresMemberRepository) FindByCompetitionAndUser(ctx context.Context, competitionID, userID string) (*models.Member, error) {
	return r.findOne(ctx, memberWithUserSelect+` WHERE cm.competition_id = $1 AND cm.user_id = $2`, competitionID, userID)
}

// ListByCompetition возвращает состав соревнования в порядке вступления.
func (r *postgresMemberRepository) ListByCompetition(ctx context.Context, competitionID string) ([]*models.Member, error) {
	query := memberWithUserSelect + ` WHERE cm.competition_id = $1 ORDER BY cm.joined_at ASC, cm.id ASC`
	return r.list(ctx, query, competitionID)
}

func (r *postgresMemberRepository) ListByUser(ctx context.Context, userID string) ([]*models.Member, error) {
	query := memberWithUserSelect + ` WHERE cm.user_id = $1 ORDER BY cm.joined_at DESC`
	return r.list(ctx, query, userID)
}

func (r *postgresMemberRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM competition_members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete competition member %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMemberNotFound)
}

func (r *postgresMemberRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Member, error) {
	m, err := scanMemberWithUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find competition member: %w", err)
	}
	return m, nil
}

func (r *postgresMemberRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list competition members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.Member, 0)
	for rows.Next() {
		m, err := scanMemberWithUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competition member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanMemberWithUser(row rowScanner) (*models.Member, error) {
	var m models.Member
	var u models.User
	var avatarKey sql.NullString
	err := row.Scan(
		&m.ID, &m.CompetitionID, &m.UserID, &m.Role, &m.JoinedAt,
		&u.ID, &u.FullName, &u.Email, &avatarKey,
	)
	if err != nil {
		return nil, err
	}
	if avatarKey.Valid {
		u.AvatarKey = &avatarKey.String
	}
	m.User = &u
	return &m, nil
}
