// Package refdata holds the static reference tables: French departments
// and the built-in category lists used when the API cannot supply them.
// Everything here is read-only after package initialisation.
package refdata

import (
	"strings"
)

// Department is one French département.
type Department struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var departments = []Department{
	{"01", "Ain"}, {"02", "Aisne"}, {"03", "Allier"},
	{"04", "Alpes-de-Haute-Provence"}, {"05", "Hautes-Alpes"},
	{"06", "Alpes-Maritimes"}, {"07", "Ardèche"}, {"08", "Ardennes"},
	{"09", "Ariège"}, {"10", "Aube"}, {"11", "Aude"},
	{"12", "Aveyron"}, {"13", "Bouches-du-Rhône"}, {"14", "Calvados"},
	{"15", "Cantal"}, {"16", "Charente"}, {"17", "Charente-Maritime"},
	{"18", "Cher"}, {"19", "Corrèze"}, {"21", "Côte-d'Or"},
	{"22", "Côtes-d'Armor"}, {"23", "Creuse"}, {"24", "Dordogne"},
	{"25", "Doubs"}, {"26", "Drôme"}, {"27", "Eure"},
	{"28", "Eure-et-Loir"}, {"29", "Finistère"}, {"2A", "Corse-du-Sud"},
	{"2B", "Haute-Corse"}, {"30", "Gard"}, {"31", "Haute-Garonne"},
	{"32", "Gers"}, {"33", "Gironde"}, {"34", "Hérault"},
	{"35", "Ille-et-Vilaine"}, {"36", "Indre"}, {"37", "Indre-et-Loire"},
	{"38", "Isère"}, {"39", "Jura"}, {"40", "Landes"},
	{"41", "Loir-et-Cher"}, {"42", "Loire"}, {"43", "Haute-Loire"},
	{"44", "Loire-Atlantique"}, {"45", "Loiret"}, {"46", "Lot"},
	{"47", "Lot-et-Garonne"}, {"48", "Lozère"}, {"49", "Maine-et-Loire"},
	{"50", "Manche"}, {"51", "Marne"}, {"52", "Haute-Marne"},
	{"53", "Mayenne"}, {"54", "Meurthe-et-Moselle"}, {"55", "Meuse"},
	{"56", "Morbihan"}, {"57", "Moselle"}, {"58", "Nièvre"},
	{"59", "Nord"}, {"60", "Oise"}, {"61", "Orne"},
	{"62", "Pas-de-Calais"}, {"63", "Puy-de-Dôme"}, {"64", "Pyrénées-Atlantiques"},
	{"65", "Hautes-Pyrénées"}, {"66", "Pyrénées-Orientales"}, {"67", "Bas-Rhin"},
	{"68", "Haut-Rhin"}, {"69", "Rhône"}, {"70", "Haute-Saône"},
	{"71", "Saône-et-Loire"}, {"72", "Sarthe"}, {"73", "Savoie"},
	{"74", "Haute-Savoie"}, {"75", "Paris"}, {"76", "Seine-Maritime"},
	{"77", "Seine-et-Marne"}, {"78", "Yvelines"}, {"79", "Deux-Sèvres"},
	{"80", "Somme"}, {"81", "Tarn"}, {"82", "Tarn-et-Garonne"},
	{"83", "Var"}, {"84", "Vaucluse"}, {"85", "Vendée"},
	{"86", "Vienne"}, {"87", "Haute-Vienne"}, {"88", "Vosges"},
	{"89", "Yonne"}, {"90", "Territoire de Belfort"}, {"91", "Essonne"},
	{"92", "Hauts-de-Seine"}, {"93", "Seine-Saint-Denis"}, {"94", "Val-de-Marne"},
	{"95", "Val-d'Oise"}, {"971", "Guadeloupe"}, {"972", "Martinique"},
	{"973", "Guyane"}, {"974", "La Réunion"}, {"976", "Mayotte"},
}

var byCode = func() map[string]string {
	m := make(map[string]string, len(departments))
	for _, d := range departments {
		m[d.Code] = d.Name
	}
	return m
}()

// Departments returns a copy of the department table in code order.
func Departments() []Department {
	out := make([]Department, len(departments))
	copy(out, departments)
	return out
}

// DepartmentName returns the name for code, accepting the forms
// NormalizeDepartmentCode understands.
func DepartmentName(code string) (string, bool) {
	name, ok := byCode[NormalizeDepartmentCode(code)]
	return name, ok
}

// NormalizeDepartmentCode pads single-digit codes ("1" → "01") and
// upper-cases the Corsican codes ("2a" → "2A").
func NormalizeDepartmentCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) == 1 && code[0] >= '0' && code[0] <= '9' {
		return "0" + code
	}
	return code
}

// ─── Fallback lists ───────────────────────────────────────────────────────────

var defaultCategories = []string{
	"Avis de constitution",
	"Modification",
	"Dissolution",
	"Clôture de liquidation",
	"Vente de fonds de commerce",
	"Location-gérance",
	"Procédure collective",
	"Immatriculation",
	"Radiation",
}

var defaultSubCategories = []string{
	"Dépôts des comptes",
	"Modifications diverses",
	"Créations",
	"Radiations",
	"Procédures collectives",
	"Ventes et cessions",
	"Immatriculations",
	"Annonces diverses",
	"Procédures de conciliation",
	"Procédures de rétablissement professionnel",
}

// DefaultCategories is the built-in announcement type list.
func DefaultCategories() []string {
	return append([]string(nil), defaultCategories...)
}

// DefaultSubCategories is the built-in announcement family list.
func DefaultSubCategories() []string {
	return append([]string(nil), defaultSubCategories...)
}
