package dashboard

import (
	"strings"

	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/visibility"

	"gorm.io/gorm/clause"
)

// Predicate is a conjunction of SQL fragments, each carrying its own bound
// arguments. Values never get spliced into the SQL text.
type Predicate struct {
	clauses []string
	args    []any
}

func (p *Predicate) Add(sql string, args ...any) {
	p.clauses = append(p.clauses, sql)
	p.args = append(p.args, args...)
}

// SQL joins the clauses with AND. An empty predicate is TRUE.
func (p Predicate) SQL() string {
	if len(p.clauses) == 0 {
		return "TRUE"
	}
	return "(" + strings.Join(p.clauses, " AND ") + ")"
}

func (p Predicate) Args() []any {
	return p.args
}

// Expr lets the predicate be passed as a single placeholder argument to a
// raw query; gorm expands it in place with its arguments.
func (p Predicate) Expr() clause.Expr {
	return clause.Expr{SQL: p.SQL(), Vars: p.Args()}
}

// Query holds the two halves of a dashboard filter. Channel restricts which
// channels participate and references alias c. Fact restricts which metric
// rows are summed and references alias d.
type Query struct {
	Channel Predicate
	Fact    Predicate
}

// BuildQuery translates a scope and filter into predicates. Only active
// channels are ever included.
func BuildQuery(scope visibility.Scope, f Filter) Query {
	var q Query

	q.Channel.Add("c.status = ?", domain.ChannelActive)
	if !scope.All {
		q.Channel.Add("c.id IN ?", scope.ChannelIDs)
	}
	if f.TeamID != nil {
		q.Channel.Add("c.team_id = ?", *f.TeamID)
	}
	if f.NetworkID != nil {
		q.Channel.Add("c.network_id = ?", *f.NetworkID)
	}
	if f.ManagerID != nil {
		q.Channel.Add(
			"EXISTS (SELECT 1 FROM staff_channels fm WHERE fm.channel_id = c.id AND fm.role = ? AND fm.staff_id = ?)",
			domain.AssignmentManager, *f.ManagerID,
		)
	}

	if f.From != nil {
		q.Fact.Add("d.date >= CAST(? AS date)", f.From.Format(dateLayout))
	}
	if f.To != nil {
		q.Fact.Add("d.date <= CAST(? AS date)", f.To.Format(dateLayout))
	}
	return q
}
