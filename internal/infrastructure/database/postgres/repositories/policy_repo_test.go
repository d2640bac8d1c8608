package repositories

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

type fakeRows struct {
	cols   []string
	data   [][]string
	pos    int
	err    error
	closed bool
}

func (f *fakeRows) Close()                        { f.closed = true }
func (f *fakeRows) Err() error                    { return f.err }
func (f *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (f *fakeRows) Conn() *pgx.Conn               { return nil }
func (f *fakeRows) RawValues() [][]byte           { return nil }

func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(f.cols))
	for i, c := range f.cols {
		out[i] = pgconn.FieldDescription{Name: c}
	}
	return out
}

func (f *fakeRows) Next() bool {
	if f.pos < len(f.data) {
		f.pos++
		return true
	}
	return false
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.data[f.pos-1]
	for i, d := range dest {
		*(d.(*string)) = row[i]
	}
	return nil
}

func (f *fakeRows) Values() ([]any, error) {
	row := f.data[f.pos-1]
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out, nil
}

type fakeQuerier struct {
	rows    pgx.Rows
	err     error
	lastSQL string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.lastSQL = sql
	return q.rows, q.err
}

func rawRow(values map[string]string) []string {
	row := make([]string, len(policy.RawColumns))
	for i, c := range policy.RawColumns {
		row[i] = values[c]
	}
	return row
}

func TestSelectPolicies(t *testing.T) {
	sql := selectPolicies("reporting.policy_book")
	assert.Contains(t, sql, `FROM "reporting"."policy_book"`)
	assert.Contains(t, sql, `COALESCE("gross_premium"::text, '') AS "gross_premium"`)
	assert.Contains(t, sql, `ORDER BY "srl"`)

	injected := selectPolicies(`x"; DROP TABLE y; --`)
	assert.Contains(t, injected, `FROM "x""; DROP TABLE y; --"`)
}

func TestPolicyRepository_FindAll(t *testing.T) {
	rows := &fakeRows{
		cols: policy.RawColumns,
		data: [][]string{
			rawRow(map[string]string{
				"srl":                "P-1",
				"class":              "Marine",
				"country":            "kenya",
				"gross_premium":      "1,000.00",
				"paid_claims":        "400",
				"outstanding_claims": "100",
				"max_liability":      "",
				"underwriting_year":  "2023",
				"inception_date":     "2023-04-01",
			}),
			rawRow(map[string]string{"srl": "P-2", "gross_premium": "oops"}),
		},
	}
	q := &fakeQuerier{rows: rows}
	repo := NewPolicyRepository(q, "", nil)

	got, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, rows.closed)
	assert.Contains(t, q.lastSQL, `FROM "policy_book"`)

	assert.Equal(t, "P-1", got[0].SerialNumber)
	assert.Equal(t, "1000", got[0].GrossPremium.String())
	assert.Equal(t, "500", got[0].IncurredClaims().String())
	assert.False(t, got[0].MaxLiability.Valid)
	assert.Equal(t, "2023-04-01", got[0].Inception.Date)
	assert.True(t, got[1].GrossPremium.IsZero())
}

func TestPolicyRepository_QueryError(t *testing.T) {
	repo := NewPolicyRepository(&fakeQuerier{err: stderrors.New("relation does not exist")}, "", nil)
	_, err := repo.FindAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceUnavailable))
}

func TestPolicyRepository_RowsError(t *testing.T) {
	rows := &fakeRows{cols: policy.RawColumns, err: stderrors.New("conn reset")}
	repo := NewPolicyRepository(&fakeQuerier{rows: rows}, "", nil)
	_, err := repo.FindAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceParseError))
}

func TestPolicyRepository_MissingColumn(t *testing.T) {
	rows := &fakeRows{cols: []string{"srl"}, data: [][]string{{"P-1"}}}
	repo := NewPolicyRepository(&fakeQuerier{rows: rows}, "", nil)
	_, err := repo.FindAll(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceParseError))
}
