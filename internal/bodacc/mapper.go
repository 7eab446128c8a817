package bodacc

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/derickschaefer/bodacc/internal/model"
)

// compatibility lists, per canonical field, the raw field names the API
// has used over time. The current name comes first.
var compatibility = map[string][]string{
	"tribunal":           {"tribunal", "nomgreffe"},
	"parutionNumber":     {"parution"},
	"publicationDate":    {"dateparution"},
	"announcementNumber": {"numeroannonce"},
	"judgmentDate":       {"datejugement"},
	"category":           {"typeavis_lib", "typeavis"},
	"subCategory":        {"familleavis_lib", "familleavis"},
	"label":              {"typeavis_lib"},
	"type":               {"publicationavis"},
	"name":               {"commercant", "denomination"},
	"address":            {"adresse"},
	"postalCode":         {"cp"},
	"city":               {"ville"},
	"departmentCode":     {"numerodepartement"},
	"department":         {"departement_nom_officiel", "departement"},
	"region":             {"region_nom_officiel", "region"},
	"activity":           {"activite"},
	"capital":            {"capital"},
	"currency":           {"devise"},
}

// MapRecord normalises one raw record into an Announcement. raw is either
// a v2 record ({id|recordid, fields}) or a flat v2.1 row. It never fails:
// unknown or missing fields fall back to defaults, and a record without an
// id gets a generated one.
func MapRecord(raw map[string]any) model.Announcement {
	fields, ok := raw["fields"].(map[string]any)
	if !ok {
		fields = raw
	}
	pick := func(canonical string) string {
		for _, k := range compatibility[canonical] {
			if s, ok := stringOf(fields[k]); ok {
				return s
			}
		}
		return ""
	}
	orDefault := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}

	return model.Announcement{
		ID:                 recordID(raw, fields),
		Tribunal:           pick("tribunal"),
		ParutionNumber:     pick("parutionNumber"),
		AnnouncementNumber: pick("announcementNumber"),
		PublicationDate:    pick("publicationDate"),
		JudgmentDate:       pick("judgmentDate"),
		Category:           pick("category"),
		SubCategory:        pick("subCategory"),
		Label:              pick("label"),
		Type:               pick("type"),
		Name:               orDefault(pick("name"), model.UnknownName),
		Address:            orDefault(streetAddress(fields), pick("address")),
		PostalCode:         pick("postalCode"),
		City:               pick("city"),
		DepartmentCode:     pick("departmentCode"),
		Department:         pick("department"),
		Region:             pick("region"),
		Activity:           pick("activity"),
		Capital:            pick("capital"),
		Currency:           orDefault(pick("currency"), "EUR"),
		Detail:             ExtractDetailText(fields),
	}
}

func recordID(raw, fields map[string]any) string {
	for _, src := range []map[string]any{raw, fields} {
		for _, k := range []string{"id", "recordid"} {
			if s, ok := stringOf(src[k]); ok {
				return s
			}
		}
	}
	return "bodacc-" + uuid.NewString()
}

func streetAddress(fields map[string]any) string {
	var parts []string
	for _, k := range []string{"numerovoie", "typevoie", "nomvoie"} {
		if s, ok := stringOf(fields[k]); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// ─── Detail text ──────────────────────────────────────────────────────────────

// ExtractDetailText builds a readable summary from the JSON-encoded
// listepersonnes and depot fields. A section that cannot be decoded is
// skipped. Lines are separated by newlines; "" means nothing was found.
func ExtractDetailText(fields map[string]any) string {
	var lines []string

	if persons, ok := decodeObject(fields["listepersonnes"]); ok {
		for _, p := range objects(persons["personne"]) {
			lines = append(lines, personLines(p)...)
		}
	}
	if depot, ok := decodeObject(fields["depot"]); ok {
		if s, ok := stringOf(depot["dateCloture"]); ok {
			lines = append(lines, "Date de clôture: "+s)
		}
		if s, ok := stringOf(depot["typeDepot"]); ok {
			lines = append(lines, "Type de dépôt: "+s)
		}
	}
	return strings.Join(lines, "\n")
}

func personLines(p map[string]any) []string {
	var lines []string
	if s, ok := stringOf(p["denomination"]); ok {
		lines = append(lines, "Dénomination: "+s)
	}
	if s, ok := stringOf(p["formeJuridique"]); ok {
		lines = append(lines, "Forme juridique: "+s)
	}
	for _, imm := range objects(p["numeroImmatriculation"]) {
		if s, ok := stringOf(imm["numeroIdentification"]); ok {
			lines = append(lines, "N° immatriculation: "+s)
			break
		}
	}
	for _, a := range objects(p["adresseSiegeSocial"]) {
		var street []string
		for _, k := range []string{"numeroVoie", "typeVoie", "nomVoie"} {
			if s, ok := stringOf(a[k]); ok {
				street = append(street, s)
			}
		}
		if len(street) == 0 {
			continue
		}
		line := "Adresse: " + strings.Join(street, " ")
		var town []string
		for _, k := range []string{"codePostal", "ville"} {
			if s, ok := stringOf(a[k]); ok {
				town = append(town, s)
			}
		}
		if len(town) > 0 {
			line += ", " + strings.Join(town, " ")
		}
		lines = append(lines, line)
		break
	}
	return lines
}

// decodeObject accepts either a JSON object or a string holding one.
func decodeObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil || m == nil {
			return nil, false
		}
		return m, true
	}
	return nil, false
}

// objects returns v as a list of objects: a single object becomes a list
// of one, non-object array items are dropped.
func objects(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// stringOf renders scalar JSON values as strings. Empty strings, nulls,
// objects and arrays report false.
func stringOf(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return "", false
		}
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}
