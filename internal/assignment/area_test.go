package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyArea(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"Internet", AreaInternet},
		{"Sin INTERNET en oficina", AreaInternet},
		{"Teléfonos IP", AreaTelephony},
		{"telefonia fija", AreaTelephony},
		{"Equipos de cómputo", AreaEquipment},
		{"Impresoras", AreaEquipment},
		{"Proyector sala 2", AreaEquipment},
		{"Correo institucional", AreaEmail},
		{"Software", AreaSoftware},
		{"Microsoft Office", AreaSoftware},
		{"Teams", AreaSoftware},
		{"Red cableada", AreaNetwork},
		{"WiFi", AreaNetwork},
		{"Nodo de datos", AreaNetwork},
		{"Mobiliario", AreaGeneral},
		{"", AreaGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyArea(tt.category))
		})
	}
}

func TestClassifyAreaFirstKeywordWins(t *testing.T) {
	// both "internet" and "red" appear; internet is checked first
	assert.Equal(t, AreaInternet, ClassifyArea("Red e Internet"))
	// shared keyword collapses categories
	assert.Equal(t, ClassifyArea("Equipo portátil"), ClassifyArea("Préstamo de equipo"))
}
