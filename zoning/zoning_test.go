package zoning

import (
	"testing"

	"github.com/gridops/loadshed-review/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyZone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.Zone
	}{
		{name: "alias WPKL", raw: "WPKL", want: models.ZoneKlangValley},
		{name: "alias LANGKAWI follows KEDAH", raw: "LANGKAWI", want: ClassifyZone("KEDAH")},
		{name: "kedah is north", raw: "Kedah", want: models.ZoneNorth},
		{name: "alias TGANU", raw: "tganu", want: models.ZoneEast},
		{name: "dotted alias", raw: "N.Sembilan", want: models.ZoneSouth},
		{name: "extra spaces", raw: "  pulau   pinang ", want: models.ZoneNorth},
		{name: "zone name passes through", raw: "Klang Valley", want: models.ZoneKlangValley},
		{name: "johor", raw: "JOHOR", want: models.ZoneSouth},
		{name: "unmapped", raw: "SABAH", want: models.ZoneNone},
		{name: "empty", raw: "", want: models.ZoneNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyZone(tt.raw))
		})
	}
}

func TestClassifyZoneLangkawiMatchesKedah(t *testing.T) {
	assert.Equal(t, ClassifyZone("KEDAH"), ClassifyZone("LANGKAWI"))
	assert.Equal(t, models.ZoneNorth, ClassifyZone("LANGKAWI"))
}

func TestClassifySubzone(t *testing.T) {
	assert.Equal(t, models.ZoneKlangValley, ClassifySubzone("Petaling Jaya"))
	assert.Equal(t, models.ZoneEast, ClassifySubzone("KUANTAN"))
	assert.Equal(t, models.ZoneNone, ClassifySubzone("Kota Kinabalu"))
	assert.Equal(t, models.ZoneNone, ClassifySubzone(""))
}

func TestMapperExtensions(t *testing.T) {
	m := NewMapper()
	m.AddAlias("PG", "PULAU PINANG")
	m.AddZone("SABAH", models.ZoneEast)
	m.AddSubzone("Kota Kinabalu", models.ZoneEast)

	assert.Equal(t, models.ZoneNorth, m.ClassifyZone("pg"))
	assert.Equal(t, models.ZoneEast, m.ClassifyZone("Sabah"))
	assert.Equal(t, models.ZoneEast, m.ClassifySubzone("KOTA KINABALU"))

	// the shared mapper is untouched
	assert.Equal(t, models.ZoneNone, ClassifyZone("SABAH"))
}

func TestParseZone(t *testing.T) {
	zone, ok := ParseZone("klang valley")
	assert.True(t, ok)
	assert.Equal(t, models.ZoneKlangValley, zone)

	zone, ok = ParseZone("NORTH")
	assert.True(t, ok)
	assert.Equal(t, models.ZoneNorth, zone)

	_, ok = ParseZone("Borneo")
	assert.False(t, ok)
}
