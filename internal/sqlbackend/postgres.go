package sqlbackend

import (
	"context"
	"fmt"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/sm"

	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/schema"
)

var psqlRenderer = renderer[dialect.Expression]{
	quote: psql.Quote,
	arg:   psql.Arg,
	raw:   psql.Raw,
	and:   psql.And,
	or:    psql.Or,
}

func renderPostgres(ctx context.Context, model *schema.Model, op ops.Operation, attrs []string) (string, []any, error) {
	mods := []bob.Mod[*dialect.SelectQuery]{
		sm.From(psql.Quote(model.Table)),
	}
	for _, attr := range attrs {
		mods = append(mods, sm.Columns(psqlColumn(attr)))
	}
	for _, j := range op.Joins {
		on := psqlRenderer.on(j)
		switch j.Type {
		case ops.LeftJoin:
			mods = append(mods, sm.LeftJoin(psql.Quote(j.Table)).On(on))
		case ops.InnerJoin, "":
			mods = append(mods, sm.InnerJoin(psql.Quote(j.Table)).On(on))
		default:
			return "", nil, fmt.Errorf("unsupported join type '%s'", j.Type)
		}
	}
	where, err := psqlRenderer.where(op)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		mods = append(mods, sm.Where(where))
	}
	mods = append(mods, sm.OrderBy(psql.Quote(model.Table, model.PrimaryKey)))

	return bob.Build(ctx, psql.Select(mods...))
}

func psqlColumn(attr string) bob.Expression {
	table, column, alias := ops.SplitAttribute(attr)
	var col dialect.Expression
	if table != "" {
		col = psql.Quote(append(columnParts(table), column)...)
	} else {
		col = psql.Quote(column)
	}
	if alias != "" {
		return col.As(alias)
	}
	return col
}
