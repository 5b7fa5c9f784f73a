package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var companiesUpsert = UpsertConfig{
	Table:        "companies",
	Columns:      []string{"edinet_code", "ticker", "company_name"},
	ConflictKeys: []string{"edinet_code"},
}

func TestUpsertSQL(t *testing.T) {
	sql, err := UpsertSQL(companiesUpsert, 2, Dollar)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "companies" ("edinet_code", "ticker", "company_name") VALUES ($1, $2, $3), ($4, $5, $6) `+
			`ON CONFLICT ("edinet_code") DO UPDATE SET "ticker" = EXCLUDED."ticker", "company_name" = EXCLUDED."company_name"`,
		sql)

	sql, err = UpsertSQL(companiesUpsert, 1, Question)
	require.NoError(t, err)
	assert.Contains(t, sql, "VALUES (?, ?, ?) ON CONFLICT")
}

func TestUpsertSQL_Explicit(t *testing.T) {
	cfg := companiesUpsert
	cfg.UpdateCols = []string{"company_name"}
	sql, err := UpsertSQL(cfg, 1, Dollar)
	require.NoError(t, err)
	assert.Contains(t, sql, `DO UPDATE SET "company_name" = EXCLUDED."company_name"`)
	assert.NotContains(t, sql, `"ticker" = EXCLUDED`)

	keysOnly := UpsertConfig{Table: "t", Columns: []string{"id"}, ConflictKeys: []string{"id"}}
	sql, err = UpsertSQL(keysOnly, 1, Dollar)
	require.NoError(t, err)
	assert.Contains(t, sql, `ON CONFLICT ("id") DO NOTHING`)
}

func TestUpsertSQL_Invalid(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "t", ConflictKeys: []string{"id"}}, 1, Dollar)
	assert.ErrorContains(t, err, "no columns specified")

	_, err = UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}}, 1, Dollar)
	assert.ErrorContains(t, err, "no conflict keys specified")

	_, err = UpsertSQL(companiesUpsert, 0, Dollar)
	assert.Error(t, err)
}

func TestUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO "companies"`).
		WithArgs("E00001", "1301", "Acme").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := Upsert(context.Background(), mock, companiesUpsert, [][]any{{"E00001", "1301", "Acme"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RowWidthMismatch(t *testing.T) {
	_, err := Upsert(context.Background(), nil, companiesUpsert, [][]any{{"E00001"}})
	assert.ErrorContains(t, err, "has 1 values")

	n, err := Upsert(context.Background(), nil, companiesUpsert, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestBulkUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_companies"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom([]string{"_tmp_upsert_companies"}, companiesUpsert.Columns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "companies" .* SELECT .* FROM "_tmp_upsert_companies" ON CONFLICT`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, companiesUpsert, [][]any{
		{"E00001", "1301", "Acme"},
		{"E00002", "", "Beta"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, companiesUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "companies",
		Columns: []string{"edinet_code"},
	}, [][]any{{"E00001"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"simple"`, sanitizeTable("simple"))
	assert.Equal(t, `"public"."companies"`, sanitizeTable("public.companies"))
}
