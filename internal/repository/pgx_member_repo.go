package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"

	"github.com/hailaprogramare/contest-backend/internal/db"
	"github.com/hailaprogramare/contest-backend/internal/model"
)

var memberColumns = []string{"team_id", "user_sub", "user_name", "user_email", "role", "joined_at"}

type MemberRepository interface {
	Add(ctx context.Context, member *model.TeamMember) error
	GetByUser(ctx context.Context, userSub string) (*model.TeamMember, error)
	ListByTeam(ctx context.Context, teamID string) ([]*model.TeamMember, error)
	Remove(ctx context.Context, teamID, userSub string) error
}

type pgxMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPgxMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &pgxMemberRepository{pool: pool}
}

func scanMember(row pgx.Row) (*model.TeamMember, error) {
	m := &model.TeamMember{}
	err := row.Scan(&m.TeamID, &m.UserSub, &m.UserName, &m.UserEmail, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (p *pgxMemberRepository) Add(ctx context.Context, member *model.TeamMember) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team_members", "team_id", "user_sub", "user_name", "user_email", "role"),
		im.Values(
			psql.Arg(member.TeamID), psql.Arg(member.UserSub),
			psql.Arg(member.UserName), psql.Arg(member.UserEmail),
			psql.Arg(string(member.Role)),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxMemberRepository) GetByUser(ctx context.Context, userSub string) (*model.TeamMember, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(columnsOf(memberColumns)...),
		sm.From("team_members"),
		sm.Where(psql.Quote("user_sub").EQ(psql.Arg(userSub))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	member, err := scanMember(e.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return member, nil
}

func (p *pgxMemberRepository) ListByTeam(ctx context.Context, teamID string) ([]*model.TeamMember, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(columnsOf(memberColumns)...),
		sm.From("team_members"),
		sm.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
		sm.OrderBy("joined_at"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.TeamMember, error) {
		return scanMember(row)
	})
	if err != nil {
		return nil, err
	}

	return members, nil
}

func (p *pgxMemberRepository) Remove(ctx context.Context, teamID, userSub string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("team_members"),
		dm.Where(
			psql.Quote("team_id").EQ(psql.Arg(teamID)).
				And(psql.Quote("user_sub").EQ(psql.Arg(userSub))),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	commandTag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
