package relations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiflow/logiflow/internal/model"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

// setupTestRegistry wires the declaration chain used by the nested
// loading tests: Transitaire -> Mrn -> Article -> SousArticle ->
// Conteneur, plus the Client side of Mrn.
func setupTestRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()

	entities := []*model.Entity{
		{
			Name: "Client",
			Fields: []*model.Field{
				{Name: "id", Type: model.TypeUUID, PrimaryKey: true, Auto: true},
				{Name: "nom", Type: model.TypeString},
			},
			Relations: []*model.Relation{
				{Kind: model.HasMany, Name: "mrns", Target: "Mrn", ForeignKey: "client_id"},
			},
		},
		{
			Name: "Transitaire",
			Fields: []*model.Field{
				{Name: "id", Type: model.TypeUUID, PrimaryKey: true, Auto: true},
				{Name: "code", Type: model.TypeString},
			},
			Relations: []*model.Relation{
				{Kind: model.HasMany, Name: "mrns", Target: "Mrn", ForeignKey: "transitaire_id"},
			},
		},
		{
			Name: "Mrn",
			Fields: []*model.Field{
				{Name: "id", Type: model.TypeUUID, PrimaryKey: true, Auto: true},
				{Name: "numero", Type: model.TypeString},
				{Name: "client_id", Type: model.TypeReference, Nullable: true},
				{Name: "transitaire_id", Type: model.TypeReference, Nullable: true},
			},
			Relations: []*model.Relation{
				{Kind: model.BelongsTo, Name: "client", Target: "Client", ForeignKey: "client_id", Nullable: true},
				{Kind: model.BelongsTo, Name: "transitaire", Target: "Transitaire", ForeignKey: "transitaire_id", Nullable: true},
				{Kind: model.HasMany, Name: "articles", Target: "Article", ForeignKey: "mrn_id"},
			},
		},
		{
			Name: "Article",
			Fields: []*model.Field{
				{Name: "id", Type: model.TypeUUID, PrimaryKey: true, Auto: true},
				{Name: "designation", Type: model.TypeString},
				{Name: "mrn_id", Type: model.TypeReference},
			},
			Relations: []*model.Relation{
				{Kind: model.BelongsTo, Name: "mrn", Target: "Mrn", ForeignKey: "mrn_id"},
				{Kind: model.HasMany, Name: "sous_articles", Target: "SousArticle", ForeignKey: "article_id"},
			},
		},
		{
			Name: "SousArticle",
			Fields: []*model.Field{
				{Name: "id", Type: model.TypeUUID, PrimaryKey: true, Auto: true},
				{Name: "numero", Type: model.TypeInt},
				{Name: "article_id", Type: model.TypeReference},
			},
			Relations: []*model.Relation{
				{Kind: model.BelongsTo, Name: "article", Target: "Article", ForeignKey: "article_id"},
				{Kind: model.HasMany, Name: "conteneurs", Target: "Conteneur", ForeignKey: "sous_article_id"},
			},
		},
		{
			Name: "Conteneur",
			Fields: []*model.Field{
				{Name: "id", Type: model.TypeUUID, PrimaryKey: true, Auto: true},
				{Name: "numero", Type: model.TypeString},
				{Name: "sous_article_id", Type: model.TypeReference},
			},
			Relations: []*model.Relation{
				{Kind: model.BelongsTo, Name: "sous_article", Target: "SousArticle", ForeignKey: "sous_article_id"},
			},
		},
	}

	for _, e := range entities {
		require.NoError(t, reg.Register(e))
	}
	require.NoError(t, reg.ValidateAll())
	return reg
}

func TestLoadBelongsTo(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	reg := setupTestRegistry(t)
	loader := NewLoader(db, reg)

	mrns := []map[string]interface{}{
		{"id": "mrn-1", "numero": "26FR000123", "client_id": "client-1"},
		{"id": "mrn-2", "numero": "26FR000124", "client_id": "client-2"},
		{"id": "mrn-3", "numero": "26FR000125", "client_id": "client-1"},
		{"id": "mrn-4", "numero": "26FR000126", "client_id": nil},
	}

	// Three distinct clients referenced, one query total.
	mock.ExpectQuery(`SELECT "id", "nom" FROM "clients" WHERE "id" = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "nom"}).
				AddRow("client-1", "Société Horizon").
				AddRow("client-2", "Atlas Négoce"),
		)

	entity, err := reg.Get("Mrn")
	require.NoError(t, err)

	err = loader.Load(context.Background(), entity, mrns, []string{"client"})
	require.NoError(t, err)

	first := mrns[0]["client"].(map[string]interface{})
	third := mrns[2]["client"].(map[string]interface{})
	assert.Equal(t, "Société Horizon", first["nom"])
	assert.Equal(t, "Société Horizon", third["nom"])

	second := mrns[1]["client"].(map[string]interface{})
	assert.Equal(t, "Atlas Négoce", second["nom"])

	// Missing foreign key resolves to nil, not a lookup error.
	assert.Nil(t, mrns[3]["client"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadHasMany(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	reg := setupTestRegistry(t)
	loader := NewLoader(db, reg)

	mrns := []map[string]interface{}{
		{"id": "mrn-1", "numero": "26FR000123"},
		{"id": "mrn-2", "numero": "26FR000124"},
	}

	mock.ExpectQuery(`SELECT "id", "designation", "mrn_id" FROM "articles" WHERE "mrn_id" = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "designation", "mrn_id"}).
				AddRow("art-1", "Pièces détachées", "mrn-1").
				AddRow("art-2", "Textiles", "mrn-1").
				AddRow("art-3", "Café vert", "mrn-2"),
		)

	entity, err := reg.Get("Mrn")
	require.NoError(t, err)

	err = loader.Load(context.Background(), entity, mrns, []string{"articles"})
	require.NoError(t, err)

	articles1 := mrns[0]["articles"].([]map[string]interface{})
	articles2 := mrns[1]["articles"].([]map[string]interface{})
	assert.Len(t, articles1, 2)
	assert.Len(t, articles2, 1)
	assert.Equal(t, "Café vert", articles2[0]["designation"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadHasManyEmptySliceNotNil(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	reg := setupTestRegistry(t)
	loader := NewLoader(db, reg)

	mrns := []map[string]interface{}{
		{"id": "mrn-1", "numero": "26FR000123"},
	}

	mock.ExpectQuery(`SELECT .+ FROM "articles" WHERE "mrn_id" = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "designation", "mrn_id"}))

	entity, err := reg.Get("Mrn")
	require.NoError(t, err)

	err = loader.Load(context.Background(), entity, mrns, []string{"articles"})
	require.NoError(t, err)

	articles := mrns[0]["articles"]
	assert.NotNil(t, articles)
	assert.IsType(t, []map[string]interface{}{}, articles)
	assert.Len(t, articles, 0)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNestedIncludeOneQueryPerSegment(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	reg := setupTestRegistry(t)
	loader := NewLoader(db, reg)

	mrns := []map[string]interface{}{
		{"id": "mrn-1", "numero": "26FR000123"},
		{"id": "mrn-2", "numero": "26FR000124"},
	}

	// Two segments, two queries, regardless of record count.
	mock.ExpectQuery(`SELECT .+ FROM "articles" WHERE "mrn_id" = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "designation", "mrn_id"}).
				AddRow("art-1", "Pièces détachées", "mrn-1").
				AddRow("art-2", "Textiles", "mrn-2"),
		)
	mock.ExpectQuery(`SELECT .+ FROM "sous_articles" WHERE "article_id" = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "numero", "article_id"}).
				AddRow("sa-1", 1, "art-1").
				AddRow("sa-2", 2, "art-1").
				AddRow("sa-3", 1, "art-2"),
		)

	entity, err := reg.Get("Mrn")
	require.NoError(t, err)

	err = loader.Load(context.Background(), entity, mrns, []string{"articles.sous_articles"})
	require.NoError(t, err)

	articles1 := mrns[0]["articles"].([]map[string]interface{})
	require.Len(t, articles1, 1)
	sousArticles := articles1[0]["sous_articles"].([]map[string]interface{})
	assert.Len(t, sousArticles, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadUnknownRelation(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	reg := setupTestRegistry(t)
	loader := NewLoader(db, reg)

	entity, err := reg.Get("Mrn")
	require.NoError(t, err)

	records := []map[string]interface{}{{"id": "mrn-1"}}
	err = loader.Load(context.Background(), entity, records, []string{"cargaison"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRelation)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDepthLimit(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	reg := setupTestRegistry(t)
	loader := NewLoader(db, reg)

	transitaires := []map[string]interface{}{
		{"id": "tr-1", "code": "TR001"},
	}

	// The first three segments execute; the fourth trips the depth cap
	// before touching the database.
	mock.ExpectQuery(`SELECT .+ FROM "mrns" WHERE "transitaire_id" = ANY\(\$1\)`).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "numero", "client_id", "transitaire_id"}).
				AddRow("mrn-1", "26FR000123", nil, "tr-1"),
		)
	mock.ExpectQuery(`SELECT .+ FROM "articles" WHERE "mrn_id" = ANY\(\$1\)`).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "designation", "mrn_id"}).
				AddRow("art-1", "Textiles", "mrn-1"),
		)
	mock.ExpectQuery(`SELECT .+ FROM "sous_articles" WHERE "article_id" = ANY\(\$1\)`).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "numero", "article_id"}).
				AddRow("sa-1", 1, "art-1"),
		)

	entity, err := reg.Get("Transitaire")
	require.NoError(t, err)

	err = loader.Load(context.Background(), entity, transitaires,
		[]string{"mrns.articles.sous_articles.conteneurs"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCycleStopsSilently(t *testing.T) {
	db, mock := setupTestDB(t)
	defer db.Close()

	reg := setupTestRegistry(t)
	loader := NewLoader(db, reg)

	mrns := []map[string]interface{}{
		{"id": "mrn-1", "numero": "26FR000123", "client_id": "client-1"},
	}

	mock.ExpectQuery(`SELECT .+ FROM "clients" WHERE "id" = ANY\(\$1\)`).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "nom"}).
				AddRow("client-1", "Société Horizon"),
		)
	mock.ExpectQuery(`SELECT .+ FROM "mrns" WHERE "client_id" = ANY\(\$1\)`).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "numero", "client_id", "transitaire_id"}).
				AddRow("mrn-1", "26FR000123", "client-1", nil),
		)

	entity, err := reg.Get("Mrn")
	require.NoError(t, err)

	// The trailing ".client" re-enters Mrn's path and is skipped, so only
	// two queries run.
	err = loader.Load(context.Background(), entity, mrns, []string{"client.mrns.client"})
	require.NoError(t, err)

	client := mrns[0]["client"].(map[string]interface{})
	nested := client["mrns"].([]map[string]interface{})
	require.Len(t, nested, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}
