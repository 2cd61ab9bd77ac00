package migrate

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiflow/logiflow/internal/model"
)

func testRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()

	require.NoError(t, reg.Register(&model.Entity{
		Name: "Client",
		Fields: []*model.Field{
			{Name: "id", Type: model.TypeUUID, PrimaryKey: true, Auto: true},
			{Name: "nom", Type: model.TypeString, MaxLength: 120},
			{Name: "code", Type: model.TypeString, Unique: true},
			{Name: "actif", Type: model.TypeBool, Default: true},
			{Name: "created_at", Type: model.TypeTimestamp, Auto: true},
		},
	}))
	require.NoError(t, reg.Register(&model.Entity{
		Name: "Mrn",
		Fields: []*model.Field{
			{Name: "id", Type: model.TypeUUID, PrimaryKey: true, Auto: true},
			{Name: "numero", Type: model.TypeString},
			{Name: "poids", Type: model.TypeDecimal, Nullable: true},
			{Name: "date_arrivee", Type: model.TypeDate, Nullable: true},
			{Name: "client_id", Type: model.TypeReference, Nullable: true},
		},
		Relations: []*model.Relation{
			{Kind: model.BelongsTo, Name: "client", Target: "Client", ForeignKey: "client_id", Nullable: true},
		},
	}))
	return reg
}

func TestCreateTableSQL(t *testing.T) {
	reg := testRegistry(t)
	client, err := reg.Get("Client")
	require.NoError(t, err)

	sql := CreateTableSQL(reg, client)

	expected := `CREATE TABLE IF NOT EXISTS "clients" (
  "id" UUID PRIMARY KEY,
  "nom" VARCHAR(120) NOT NULL,
  "code" VARCHAR(255) NOT NULL UNIQUE,
  "actif" BOOLEAN NOT NULL DEFAULT TRUE,
  "created_at" TIMESTAMP WITH TIME ZONE NOT NULL
);`
	assert.Equal(t, expected, sql)
}

func TestCreateTableSQLRendersReferences(t *testing.T) {
	reg := testRegistry(t)
	mrn, err := reg.Get("Mrn")
	require.NoError(t, err)

	sql := CreateTableSQL(reg, mrn)
	assert.Contains(t, sql, `"client_id" UUID REFERENCES "clients"("id")`)
	assert.Contains(t, sql, `"poids" NUMERIC(14,2)`)
	assert.Contains(t, sql, `"date_arrivee" DATE`)
	assert.NotContains(t, sql, `"poids" NUMERIC(14,2) NOT NULL`)
}

func TestScriptFollowsRegistrationOrder(t *testing.T) {
	reg := testRegistry(t)

	script := Script(reg)
	clientIdx := strings.Index(script, `CREATE TABLE IF NOT EXISTS "clients"`)
	mrnIdx := strings.Index(script, `CREATE TABLE IF NOT EXISTS "mrns"`)

	require.GreaterOrEqual(t, clientIdx, 0)
	require.GreaterOrEqual(t, mrnIdx, 0)
	assert.Greater(t, mrnIdx, clientIdx)
}

func TestRunnerAppliesEveryTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := testRegistry(t)
	runner := NewRunner(db, reg)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "clients"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "mrns"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, runner.Apply(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
