package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"

	"github.com/hailaprogramare/contest-backend/internal/db"
	"github.com/hailaprogramare/contest-backend/internal/model"
)

var teamColumns = []string{
	"id", "name", "school", "section",
	"coordinator_name", "coordinator_email", "coordinator_phone",
	"captain_name", "captain_email", "captain_discord",
	"member1_name", "member1_email", "member1_discord",
	"member2_name", "member2_email", "member2_discord",
	"member3_name", "member3_email", "member3_discord",
	"diploma_email", "team_code", "owner_sub", "solution_url", "created_at",
}

type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	Get(ctx context.Context, id string) (*model.Team, error)
	GetByCode(ctx context.Context, code string) (*model.Team, error)
	GetByOwner(ctx context.Context, ownerSub string) (*model.Team, error)
	List(ctx context.Context) ([]*model.Team, error)
	Update(ctx context.Context, team *model.Team) (*model.Team, error)
	SetSolutionURL(ctx context.Context, id, url string) (*model.Team, error)
	Delete(ctx context.Context, id string) error
}

type pgxTeamRepository struct {
	pool *pgxpool.Pool
}

func NewPgxTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &pgxTeamRepository{pool: pool}
}

func columnsOf(names []string) []any {
	cols := make([]any, 0, len(names))
	for _, n := range names {
		cols = append(cols, n)
	}
	return cols
}

func scanTeam(row pgx.Row) (*model.Team, error) {
	t := &model.Team{}
	err := row.Scan(
		&t.ID, &t.Name, &t.School, &t.Section,
		&t.CoordinatorName, &t.CoordinatorEmail, &t.CoordinatorPhone,
		&t.CaptainName, &t.CaptainEmail, &t.CaptainDiscord,
		&t.Member1Name, &t.Member1Email, &t.Member1Discord,
		&t.Member2Name, &t.Member2Email, &t.Member2Discord,
		&t.Member3Name, &t.Member3Email, &t.Member3Discord,
		&t.DiplomaEmail, &t.TeamCode, &t.OwnerSub, &t.SolutionURL, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (p *pgxTeamRepository) Create(ctx context.Context, team *model.Team) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("teams",
			"id", "name", "school", "section",
			"coordinator_name", "coordinator_email", "coordinator_phone",
			"captain_name", "captain_email", "captain_discord",
			"member1_name", "member1_email", "member1_discord",
			"member2_name", "member2_email", "member2_discord",
			"member3_name", "member3_email", "member3_discord",
			"diploma_email", "team_code", "owner_sub", "solution_url",
		),
		im.Values(
			psql.Arg(team.ID), psql.Arg(team.Name), psql.Arg(team.School), psql.Arg(team.Section),
			psql.Arg(team.CoordinatorName), psql.Arg(team.CoordinatorEmail), psql.Arg(team.CoordinatorPhone),
			psql.Arg(team.CaptainName), psql.Arg(team.CaptainEmail), psql.Arg(team.CaptainDiscord),
			psql.Arg(team.Member1Name), psql.Arg(team.Member1Email), psql.Arg(team.Member1Discord),
			psql.Arg(team.Member2Name), psql.Arg(team.Member2Email), psql.Arg(team.Member2Discord),
			psql.Arg(team.Member3Name), psql.Arg(team.Member3Email), psql.Arg(team.Member3Discord),
			psql.Arg(team.DiplomaEmail), psql.Arg(team.TeamCode), psql.Arg(team.OwnerSub), psql.Arg(team.SolutionURL),
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

func (p *pgxTeamRepository) Get(ctx context.Context, id string) (*model.Team, error) {
	return p.getWhere(ctx, psql.Quote("id").EQ(psql.Arg(id)))
}

func (p *pgxTeamRepository) GetByCode(ctx context.Context, code string) (*model.Team, error) {
	return p.getWhere(ctx, psql.Quote("team_code").EQ(psql.Arg(code)))
}

func (p *pgxTeamRepository) GetByOwner(ctx context.Context, ownerSub string) (*model.Team, error) {
	return p.getWhere(ctx, psql.Quote("owner_sub").EQ(psql.Arg(ownerSub)))
}

func (p *pgxTeamRepository) getWhere(ctx context.Context, cond bob.Expression) (*model.Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(columnsOf(teamColumns)...),
		sm.From("teams"),
		sm.Where(cond),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	team, err := scanTeam(e.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return team, nil
}

func (p *pgxTeamRepository) List(ctx context.Context) ([]*model.Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(columnsOf(teamColumns)...),
		sm.From("teams"),
		sm.OrderBy("created_at").Desc(),
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

	teams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Team, error) {
		return scanTeam(row)
	})
	if err != nil {
		return nil, err
	}

	return teams, nil
}

func (p *pgxTeamRepository) Update(ctx context.Context, team *model.Team) (*model.Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sets := []bob.Mod[*dialect.UpdateQuery]{
		um.SetCol("name").ToArg(team.Name),
		um.SetCol("school").ToArg(team.School),
		um.SetCol("section").ToArg(team.Section),
		um.SetCol("coordinator_name").ToArg(team.CoordinatorName),
		um.SetCol("coordinator_email").ToArg(team.CoordinatorEmail),
		um.SetCol("coordinator_phone").ToArg(team.CoordinatorPhone),
		um.SetCol("captain_name").ToArg(team.CaptainName),
		um.SetCol("captain_email").ToArg(team.CaptainEmail),
		um.SetCol("captain_discord").ToArg(team.CaptainDiscord),
		um.SetCol("member1_name").ToArg(team.Member1Name),
		um.SetCol("member1_email").ToArg(team.Member1Email),
		um.SetCol("member1_discord").ToArg(team.Member1Discord),
		um.SetCol("member2_name").ToArg(team.Member2Name),
		um.SetCol("member2_email").ToArg(team.Member2Email),
		um.SetCol("member2_discord").ToArg(team.Member2Discord),
		um.SetCol("member3_name").ToArg(team.Member3Name),
		um.SetCol("member3_email").ToArg(team.Member3Email),
		um.SetCol("member3_discord").ToArg(team.Member3Discord),
		um.SetCol("diploma_email").ToArg(team.DiplomaEmail),
	}

	q := psql.Update(
		um.Table("teams"),
		um.Where(psql.Quote("id").EQ(psql.Arg(team.ID))),
		um.Returning(columnsOf(teamColumns)...),
	)

	q.Apply(sets...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := scanTeam(e.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (p *pgxTeamRepository) SetSolutionURL(ctx context.Context, id, url string) (*model.Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("teams"),
		um.SetCol("solution_url").ToArg(url),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
		um.Returning(columnsOf(teamColumns)...),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := scanTeam(e.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (p *pgxTeamRepository) Delete(ctx context.Context, id string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("teams"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id))),
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
