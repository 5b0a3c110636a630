package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"

	"github.com/hailaprogramare/contest-backend/internal/db"
	"github.com/hailaprogramare/contest-backend/internal/model"
)

type FlagRepository interface {
	Get(ctx context.Context, name string) (*model.Flag, error)
	GetMany(ctx context.Context, names []string) ([]*model.Flag, error)
	Set(ctx context.Context, name, value string) (*model.Flag, error)
	Upsert(ctx context.Context, name, value string) error
}

type pgxFlagRepository struct {
	pool *pgxpool.Pool
}

func NewPgxFlagRepository(pool *pgxpool.Pool) FlagRepository {
	return &pgxFlagRepository{pool: pool}
}

func (p *pgxFlagRepository) Get(ctx context.Context, name string) (*model.Flag, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("flag", "value"),
		sm.From("flags"),
		sm.Where(psql.Quote("flag").EQ(psql.Arg(name))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	f := &model.Flag{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&f.Name, &f.Value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (p *pgxFlagRepository) GetMany(ctx context.Context, names []string) ([]*model.Flag, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	in := make([]bob.Expression, 0, len(names))
	for _, n := range names {
		in = append(in, psql.Arg(n))
	}

	q := psql.Select(
		sm.Columns("flag", "value"),
		sm.From("flags"),
		sm.Where(psql.Quote("flag").In(in...)),
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

	flags, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Flag, error) {
		f := &model.Flag{}
		if err = row.Scan(&f.Name, &f.Value); err != nil {
			return nil, err
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}

	return flags, nil
}

func (p *pgxFlagRepository) Set(ctx context.Context, name, value string) (*model.Flag, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("flags"),
		um.SetCol("value").ToArg(value),
		um.Where(psql.Quote("flag").EQ(psql.Arg(name))),
		um.Returning("flag", "value"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	f := &model.Flag{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&f.Name, &f.Value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (p *pgxFlagRepository) Upsert(ctx context.Context, name, value string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("flags", "flag", "value"),
		im.Values(psql.Arg(name), psql.Arg(value)),
		im.OnConflict(psql.Quote("flag")).DoUpdate(
			im.SetCol("value").ToArg(value),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return err
	}

	return nil
}
