package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/catalog"
	"github.com/logiflow/logiflow/internal/model"
)

func testRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()
	require.NoError(t, catalog.Register(reg))
	return reg
}

func TestCompile_DefaultOrderIsInsertionOrder(t *testing.T) {
	reg := testRegistry(t)
	mrn, err := reg.Get("Mrn")
	require.NoError(t, err)

	qb, err := Compile(reg, mrn, &ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)

	sql, args, err := qb.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, `ORDER BY "created_at" ASC, "id" ASC`)
	assert.Empty(t, args)
}

func TestCompile_TextContainsFilter(t *testing.T) {
	reg := testRegistry(t)
	mrn, _ := reg.Get("Mrn")

	qb, err := Compile(reg, mrn, &ListParams{
		Page: 1, PageSize: 10,
		Filters: []Filter{{Field: "numero", Op: "contains", Raw: "24GN"}},
	})
	require.NoError(t, err)

	sql, args, err := qb.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "numero LIKE $1")
	assert.Equal(t, "%24GN%", args[0])
}

func TestCompile_NumericRangeAndIn(t *testing.T) {
	reg := testRegistry(t)
	article, _ := reg.Get("Article")

	qb, err := Compile(reg, article, &ListParams{
		Page: 1, PageSize: 10,
		Filters: []Filter{
			{Field: "poids", Op: "gte", Raw: "100"},
			{Field: "numero", Op: "in", Raw: "1,2,3"},
		},
	})
	require.NoError(t, err)

	sql, args, err := qb.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "poids >=")
	assert.Contains(t, sql, "numero IN")
	assert.Len(t, args, 4)
}

func TestCompile_IsNullFilter(t *testing.T) {
	reg := testRegistry(t)
	mrn, _ := reg.Get("Mrn")

	qb, err := Compile(reg, mrn, &ListParams{
		Page: 1, PageSize: 10,
		Filters: []Filter{{Field: "navire_id", Op: "isnull", Raw: "true"}},
	})
	require.NoError(t, err)

	sql, _, err := qb.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "navire_id IS NULL")
}

func TestCompile_SearchORsTextFields(t *testing.T) {
	reg := testRegistry(t)
	client, _ := reg.Get("Client")

	qb, err := Compile(reg, client, &ListParams{Page: 1, PageSize: 10, Search: "guinee"})
	require.NoError(t, err)

	sql, args, err := qb.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "ILIKE")
	assert.Contains(t, sql, " OR ")
	require.NotEmpty(t, args)
	assert.Equal(t, "%guinee%", args[0])
}

func TestCompile_UnknownFieldAndOperatorAggregate(t *testing.T) {
	reg := testRegistry(t)
	mrn, _ := reg.Get("Mrn")

	_, err := Compile(reg, mrn, &ListParams{
		Page: 1, PageSize: 10,
		OrderBy: "nonexistent",
		Filters: []Filter{
			{Field: "bogus", Op: "", Raw: "x"},
			{Field: "numero", Op: "gt", Raw: "1"}, // gt is not a text operator
		},
	})
	require.Error(t, err)

	var verr *apierr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "order_by")
	assert.Contains(t, verr.Fields, "filter[bogus]")
	assert.Contains(t, verr.Fields, "filter[numero__gt]")
}

func TestCompile_ExpandValidation(t *testing.T) {
	reg := testRegistry(t)
	mrn, _ := reg.Get("Mrn")

	_, err := Compile(reg, mrn, &ListParams{
		Page: 1, PageSize: 10,
		Expand: []string{"articles.client", "cargo"},
	})
	require.Error(t, err)

	var verr *apierr.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "expand")
	assert.Contains(t, verr.Fields["expand"][0], "cargo")
}

func TestCompile_ExpandDepthLimit(t *testing.T) {
	reg := testRegistry(t)
	sousArticle, _ := reg.Get("SousArticle")

	_, err := Compile(reg, sousArticle, &ListParams{
		Page: 1, PageSize: 10,
		Expand: []string{"article.mrn.navire.mrns"},
	})
	require.Error(t, err)

	var verr *apierr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "expand")
}
