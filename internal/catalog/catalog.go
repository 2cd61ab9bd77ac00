// Package catalog declares the logistics entities served by the
// generated API surfaces. Registering the catalog is the single place
// new entities are added; the REST routes, graph types, table DDL, and
// capability policies all derive from these descriptors.
package catalog

import (
	"github.com/logiflow/logiflow/internal/model"
)

// Register adds every Logiflow entity to the registry. Registration
// order is also table-creation order, so referenced entities come
// first.
func Register(reg *model.Registry) error {
	for _, e := range entities() {
		if err := reg.Register(e); err != nil {
			return err
		}
	}
	return reg.ValidateAll()
}

func entities() []*model.Entity {
	return []*model.Entity{
		{
			Name: "Port",
			Fields: standard(
				field("code", model.TypeString, unique, maxLen(10)),
				field("nom", model.TypeString, maxLen(120)),
				field("pays", model.TypeString, nullable, maxLen(60)),
			),
		},
		{
			Name: "Navire",
			Fields: standard(
				field("nom", model.TypeString, maxLen(120)),
				field("imo", model.TypeString, unique, maxLen(10)),
				field("pavillon", model.TypeString, nullable, maxLen(60)),
			),
			Relations: []*model.Relation{
				hasMany("mrns", "Mrn", "navire_id"),
			},
		},
		{
			Name: "Client",
			Fields: standard(
				field("code", model.TypeString, unique, maxLen(20)),
				field("nom", model.TypeString, maxLen(120)),
				field("adresse", model.TypeText, nullable),
				field("telephone", model.TypeString, nullable, maxLen(30)),
				field("email", model.TypeString, nullable, maxLen(120)),
				field("actif", model.TypeBool, withDefault(true)),
			),
			Relations: []*model.Relation{
				hasMany("articles", "Article", "client_id"),
				hasMany("factures", "Facture", "client_id"),
			},
		},
		{
			Name: "Transitaire",
			Fields: standard(
				field("code", model.TypeString, unique, maxLen(20)),
				field("nom", model.TypeString, maxLen(120)),
				field("agrement", model.TypeString, nullable, maxLen(40)),
			),
			Relations: []*model.Relation{
				hasMany("articles", "Article", "transitaire_id"),
			},
		},
		{
			Name: "Mrn",
			Fields: standard(
				field("numero", model.TypeString, unique, maxLen(30)),
				field("date_accostage", model.TypeDate, nullable),
				reference("navire_id", nullable),
			),
			Relations: []*model.Relation{
				belongsTo("navire", "Navire", "navire_id", optional),
				hasMany("articles", "Article", "mrn_id"),
			},
		},
		{
			Name: "Article",
			Fields: standard(
				field("numero", model.TypeInt),
				field("designation", model.TypeText, nullable),
				field("poids", model.TypeDecimal, nullable),
				field("nombre_colis", model.TypeInt, nullable),
				reference("mrn_id"),
				reference("client_id", nullable),
				reference("transitaire_id", nullable),
			),
			Relations: []*model.Relation{
				belongsTo("mrn", "Mrn", "mrn_id"),
				belongsTo("client", "Client", "client_id", optional),
				belongsTo("transitaire", "Transitaire", "transitaire_id", optional),
				hasMany("sous_articles", "SousArticle", "article_id"),
				hasMany("conteneurs", "Conteneur", "article_id"),
				hasMany("prestations", "Prestation", "article_id"),
			},
		},
		{
			Name: "SousArticle",
			Fields: standard(
				field("numero", model.TypeInt),
				field("designation", model.TypeText, nullable),
				field("poids", model.TypeDecimal, nullable),
				reference("article_id"),
			),
			Relations: []*model.Relation{
				belongsTo("article", "Article", "article_id"),
			},
		},
		{
			Name: "Conteneur",
			Fields: standard(
				field("matricule", model.TypeString, maxLen(30)),
				field("type_conteneur", model.TypeString, nullable, maxLen(20)),
				field("poids", model.TypeDecimal, nullable),
				field("date_livraison", model.TypeDate, nullable),
				reference("article_id"),
			),
			Relations: []*model.Relation{
				belongsTo("article", "Article", "article_id"),
				hasMany("visites", "Visite", "conteneur_id"),
			},
		},
		{
			Name: "Bareme",
			Fields: standard(
				field("code", model.TypeString, unique, maxLen(20)),
				field("libelle", model.TypeString, maxLen(120)),
				field("actif", model.TypeBool, withDefault(true)),
			),
			Relations: []*model.Relation{
				hasMany("rubriques", "Rubrique", "bareme_id"),
			},
		},
		{
			Name: "Rubrique",
			Fields: standard(
				field("code", model.TypeString, maxLen(20)),
				field("libelle", model.TypeString, maxLen(120)),
				field("montant", model.TypeDecimal),
				reference("bareme_id"),
			),
			Relations: []*model.Relation{
				belongsTo("bareme", "Bareme", "bareme_id"),
			},
		},
		{
			Name: "Prestation",
			Fields: standard(
				field("libelle", model.TypeString, maxLen(120)),
				field("montant", model.TypeDecimal),
				field("date_prestation", model.TypeDate, nullable),
				reference("article_id"),
			),
			Relations: []*model.Relation{
				belongsTo("article", "Article", "article_id"),
			},
		},
		{
			Name: "Facture",
			Fields: standard(
				field("numero", model.TypeString, unique, maxLen(30)),
				field("date_facture", model.TypeDate),
				field("montant_total", model.TypeDecimal, nullable),
				field("reglee", model.TypeBool, withDefault(false)),
				reference("client_id"),
			),
			Relations: []*model.Relation{
				belongsTo("client", "Client", "client_id"),
				hasMany("lignes", "FactureLigne", "facture_id"),
			},
		},
		{
			Name: "FactureLigne",
			Fields: standard(
				field("libelle", model.TypeString, maxLen(120)),
				field("montant", model.TypeDecimal),
				reference("facture_id"),
				reference("prestation_id", nullable),
			),
			Relations: []*model.Relation{
				belongsTo("facture", "Facture", "facture_id"),
				belongsTo("prestation", "Prestation", "prestation_id", optional),
			},
		},
		{
			Name: "Visite",
			Fields: standard(
				field("date", model.TypeDate),
				field("valid", model.TypeBool, withDefault(false)),
				field("observation", model.TypeText, nullable),
				reference("conteneur_id"),
			),
			Relations: []*model.Relation{
				belongsTo("conteneur", "Conteneur", "conteneur_id"),
			},
		},
		{
			Name: "Banque",
			Fields: standard(
				field("code", model.TypeString, unique, maxLen(20)),
				field("nom", model.TypeString, maxLen(120)),
				field("agence", model.TypeString, nullable, maxLen(120)),
				field("swift", model.TypeString, nullable, maxLen(11)),
			),
		},
	}
}

type fieldOption func(*model.Field)

var (
	nullable fieldOption = func(f *model.Field) { f.Nullable = true }
	unique   fieldOption = func(f *model.Field) { f.Unique = true }
)

func maxLen(n int) fieldOption {
	return func(f *model.Field) { f.MaxLength = n }
}

func withDefault(v interface{}) fieldOption {
	return func(f *model.Field) { f.Default = v }
}

func field(name string, t model.FieldType, opts ...fieldOption) *model.Field {
	f := &model.Field{Name: name, Type: t}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func reference(name string, opts ...fieldOption) *model.Field {
	return field(name, model.TypeReference, opts...)
}

// standard wraps the domain fields with the columns every entity
// carries: a generated uuid primary key and create/update timestamps.
func standard(domain ...*model.Field) []*model.Field {
	fields := make([]*model.Field, 0, len(domain)+3)
	fields = append(fields, &model.Field{Name: "id", Type: model.TypeUUID, PrimaryKey: true, Auto: true})
	fields = append(fields, domain...)
	fields = append(fields,
		&model.Field{Name: "created_at", Type: model.TypeTimestamp, Auto: true},
		&model.Field{Name: "updated_at", Type: model.TypeTimestamp, Auto: true},
	)
	return fields
}

type relationOption func(*model.Relation)

var optional relationOption = func(r *model.Relation) { r.Nullable = true }

func belongsTo(name, target, fk string, opts ...relationOption) *model.Relation {
	r := &model.Relation{Kind: model.BelongsTo, Name: name, Target: target, ForeignKey: fk}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func hasMany(name, target, fk string) *model.Relation {
	return &model.Relation{Kind: model.HasMany, Name: name, Target: target, ForeignKey: fk}
}
