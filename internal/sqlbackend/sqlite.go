package sqlbackend

import (
	"context"
	"fmt"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/sqlite"
	"github.com/stephenafamo/bob/dialect/sqlite/dialect"
	"github.com/stephenafamo/bob/dialect/sqlite/sm"

	"github.com/aidanlsb/linkq/internal/ops"
	"github.com/aidanlsb/linkq/internal/schema"
)

var sqliteRenderer = renderer[dialect.Expression]{
	quote: sqlite.Quote,
	arg:   sqlite.Arg,
	raw:   sqlite.Raw,
	and:   sqlite.And,
	or:    sqlite.Or,
}

func renderSQLite(ctx context.Context, model *schema.Model, op ops.Operation, attrs []string) (string, []any, error) {
	mods := []bob.Mod[*dialect.SelectQuery]{
		sm.From(sqlite.Quote(model.Table)),
	}
	for _, attr := range attrs {
		mods = append(mods, sm.Columns(sqliteColumn(attr)))
	}
	for _, j := range op.Joins {
		on := sqliteRenderer.on(j)
		switch j.Type {
		case ops.LeftJoin:
			mods = append(mods, sm.LeftJoin(sqlite.Quote(j.Table)).On(on))
		case ops.InnerJoin, "":
			mods = append(mods, sm.InnerJoin(sqlite.Quote(j.Table)).On(on))
		default:
			return "", nil, fmt.Errorf("unsupported join type '%s'", j.Type)
		}
	}
	where, err := sqliteRenderer.where(op)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		mods = append(mods, sm.Where(where))
	}
	mods = append(mods, sm.OrderBy(sqlite.Quote(model.Table, model.PrimaryKey)))

	return bob.Build(ctx, sqlite.Select(mods...))
}

func sqliteColumn(attr string) bob.Expression {
	table, column, alias := ops.SplitAttribute(attr)
	var col dialect.Expression
	if table != "" {
		col = sqlite.Quote(append(columnParts(table), column)...)
	} else {
		col = sqlite.Quote(column)
	}
	if alias != "" {
		return col.As(alias)
	}
	return col
}
