package refdata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/derickschaefer/bodacc/internal/refdata"
)

func TestDepartments(t *testing.T) {
	deps := refdata.Departments()
	assert.Len(t, deps, 101)

	seen := map[string]bool{}
	for _, d := range deps {
		assert.False(t, seen[d.Code], "duplicate code %s", d.Code)
		seen[d.Code] = true
		assert.NotEmpty(t, d.Name, d.Code)
	}
	assert.False(t, seen["20"], "20 was split into 2A and 2B")

	// callers get a copy
	deps[0].Name = "changed"
	assert.Equal(t, "Ain", refdata.Departments()[0].Name)
}

func TestDepartmentName(t *testing.T) {
	for code, want := range map[string]string{
		"75":  "Paris",
		"1":   "Ain",
		"01":  "Ain",
		"2a":  "Corse-du-Sud",
		" 2B": "Haute-Corse",
		"974": "La Réunion",
	} {
		name, ok := refdata.DepartmentName(code)
		assert.True(t, ok, code)
		assert.Equal(t, want, name, code)
	}
	_, ok := refdata.DepartmentName("99")
	assert.False(t, ok)
}

func TestDefaultLists(t *testing.T) {
	cats := refdata.DefaultCategories()
	assert.Len(t, cats, 9)
	assert.Contains(t, cats, "Immatriculation")
	cats[0] = "changed"
	assert.Equal(t, "Avis de constitution", refdata.DefaultCategories()[0])

	assert.Len(t, refdata.DefaultSubCategories(), 10)
}
