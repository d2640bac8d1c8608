// Package repositories holds the PostgreSQL implementations of domain
// repository contracts.
package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// DefaultPolicyTable is the table read when none is configured.
const DefaultPolicyTable = "policy_book"

// querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PolicyRepository reads the policy book.  Every column is selected as text
// so typed and untyped source schemas load the same way; cleaning happens in
// policy.Raw.Record.
type PolicyRepository struct {
	db     querier
	query  string
	logger logging.Logger
}

var _ policy.Repository = (*PolicyRepository)(nil)

// NewPolicyRepository builds a repository over table, which may be schema
// qualified ("reporting.policy_book").
func NewPolicyRepository(db querier, table string, logger logging.Logger) *PolicyRepository {
	if table == "" {
		table = DefaultPolicyTable
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PolicyRepository{
		db:     db,
		query:  selectPolicies(table),
		logger: logger.Named("policy-repo"),
	}
}

func selectPolicies(table string) string {
	cols := make([]string, len(policy.RawColumns))
	for i, c := range policy.RawColumns {
		ident := pgx.Identifier{c}.Sanitize()
		cols[i] = fmt.Sprintf("COALESCE(%s::text, '') AS %s", ident, ident)
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "),
		pgx.Identifier(strings.Split(table, ".")).Sanitize(),
		pgx.Identifier{"srl"}.Sanitize(),
	)
}

// FindAll loads every row of the policy book.
func (r *PolicyRepository) FindAll(ctx context.Context) ([]policy.Record, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, r.query)
	if err != nil {
		r.logger.Error("policy query failed", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "query policy book")
	}
	raws, err := pgx.CollectRows(rows, pgx.RowToStructByName[policy.Raw])
	if err != nil {
		r.logger.Error("policy row scan failed", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeSourceParseError, "scan policy book")
	}

	r.logger.Debug("policy book loaded", logging.Int("rows", len(raws)), logging.Duration("took", time.Since(start)))
	return policy.RecordsFromRaw(raws), nil
}
