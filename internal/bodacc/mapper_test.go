package bodacc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/derickschaefer/bodacc/internal/bodacc"
	"github.com/derickschaefer/bodacc/internal/model"
)

func TestMapRecordEmpty(t *testing.T) {
	a := bodacc.MapRecord(map[string]any{})
	assert.NotEmpty(t, a.ID)
	assert.True(t, strings.HasPrefix(a.ID, "bodacc-"))
	assert.Equal(t, model.UnknownName, a.Name)
	assert.Equal(t, "EUR", a.Currency)
	assert.Empty(t, a.Tribunal)
	assert.Empty(t, a.Address)
	assert.Empty(t, a.Detail)

	b := bodacc.MapRecord(nil)
	assert.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMapRecordCurrentNames(t *testing.T) {
	a := bodacc.MapRecord(map[string]any{
		"id": "rec-1",
		"fields": map[string]any{
			"tribunal":                 "Greffe du Tribunal de Commerce de Paris",
			"parution":                 "20240012",
			"dateparution":             "2024-01-17",
			"numeroannonce":            float64(1234),
			"typeavis_lib":             "Avis de constitution",
			"familleavis_lib":          "Créations",
			"publicationavis":          "A",
			"commercant":               "DUPONT & FILS",
			"numerovoie":               "12",
			"typevoie":                 "rue",
			"nomvoie":                  "de Rivoli",
			"cp":                       "75001",
			"ville":                    "Paris",
			"numerodepartement":        "75",
			"departement_nom_officiel": "Paris",
			"region_nom_officiel":      "Île-de-France",
			"activite":                 "Boulangerie",
			"capital":                  float64(5000),
			"devise":                   "EUR",
			"datejugement":             "2024-01-10",
		},
	})
	assert.Equal(t, "rec-1", a.ID)
	assert.Equal(t, "Greffe du Tribunal de Commerce de Paris", a.Tribunal)
	assert.Equal(t, "20240012", a.ParutionNumber)
	assert.Equal(t, "2024-01-17", a.PublicationDate)
	assert.Equal(t, "1234", a.AnnouncementNumber)
	assert.Equal(t, "Avis de constitution", a.Category)
	assert.Equal(t, "Avis de constitution", a.Label)
	assert.Equal(t, "Créations", a.SubCategory)
	assert.Equal(t, "A", a.Type)
	assert.Equal(t, "DUPONT & FILS", a.Name)
	assert.Equal(t, "12 rue de Rivoli", a.Address)
	assert.Equal(t, "75001", a.PostalCode)
	assert.Equal(t, "Paris", a.City)
	assert.Equal(t, "75", a.DepartmentCode)
	assert.Equal(t, "Paris", a.Department)
	assert.Equal(t, "Île-de-France", a.Region)
	assert.Equal(t, "Boulangerie", a.Activity)
	assert.Equal(t, "5000", a.Capital)
	assert.Equal(t, "2024-01-10", a.JudgmentDate)
}

func TestMapRecordLegacyNames(t *testing.T) {
	a := bodacc.MapRecord(map[string]any{
		"recordid": "legacy-9",
		"fields": map[string]any{
			"nomgreffe":    "Lyon",
			"typeavis":     "Radiation",
			"familleavis":  "Radiations",
			"denomination": "MARTIN",
			"adresse":      "3 place Bellecour",
			"departement":  "Rhône",
			"region":       "Auvergne-Rhône-Alpes",
		},
	})
	assert.Equal(t, "legacy-9", a.ID)
	assert.Equal(t, "Lyon", a.Tribunal)
	assert.Equal(t, "Radiation", a.Category)
	assert.Empty(t, a.Label, "label only reads the current field name")
	assert.Equal(t, "Radiations", a.SubCategory)
	assert.Equal(t, "MARTIN", a.Name)
	assert.Equal(t, "3 place Bellecour", a.Address)
	assert.Equal(t, "Rhône", a.Department)
	assert.Equal(t, "Auvergne-Rhône-Alpes", a.Region)
}

func TestMapRecordIgnoresWrongTypes(t *testing.T) {
	a := bodacc.MapRecord(map[string]any{
		"fields": map[string]any{
			"commercant": map[string]any{"nested": true},
			"ville":      []any{"x"},
			"tribunal":   nil,
			"cp":         true,
		},
	})
	assert.Equal(t, model.UnknownName, a.Name)
	assert.Empty(t, a.City)
	assert.Empty(t, a.Tribunal)
	assert.Equal(t, "true", a.PostalCode)
}

func TestExtractDetailTextEncoded(t *testing.T) {
	fields := map[string]any{
		"listepersonnes": `{"personne": {
			"denomination": "ACME",
			"formeJuridique": "SAS",
			"numeroImmatriculation": {"numeroIdentification": "123 456 789"},
			"adresseSiegeSocial": {"numeroVoie": "5", "typeVoie": "avenue", "nomVoie": "Foch", "codePostal": "69006", "ville": "Lyon"}
		}}`,
		"depot": `{"dateCloture": "2023-12-31", "typeDepot": "Comptes annuels"}`,
	}
	want := strings.Join([]string{
		"Dénomination: ACME",
		"Forme juridique: SAS",
		"N° immatriculation: 123 456 789",
		"Adresse: 5 avenue Foch, 69006 Lyon",
		"Date de clôture: 2023-12-31",
		"Type de dépôt: Comptes annuels",
	}, "\n")
	assert.Equal(t, want, bodacc.ExtractDetailText(fields))
}

func TestExtractDetailTextPersonArrayAndObjects(t *testing.T) {
	fields := map[string]any{
		"listepersonnes": map[string]any{
			"personne": []any{
				map[string]any{"denomination": "ONE"},
				"junk",
				map[string]any{"denomination": "TWO", "adresseSiegeSocial": map[string]any{"nomVoie": "Grande Rue"}},
			},
		},
	}
	assert.Equal(t, "Dénomination: ONE\nDénomination: TWO\nAdresse: Grande Rue", bodacc.ExtractDetailText(fields))
}

func TestExtractDetailTextSkipsBrokenSection(t *testing.T) {
	fields := map[string]any{
		"listepersonnes": `{not json`,
		"depot":          `{"typeDepot": "Comptes annuels"}`,
	}
	assert.Equal(t, "Type de dépôt: Comptes annuels", bodacc.ExtractDetailText(fields))

	assert.Equal(t, "", bodacc.ExtractDetailText(map[string]any{"depot": "[]"}))
	assert.Equal(t, "", bodacc.ExtractDetailText(nil))
}
