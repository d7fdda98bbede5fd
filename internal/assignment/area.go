package assignment

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Coarse areas a service category collapses into.
const (
	AreaInternet  = "INTERNET"
	AreaTelephony = "TELEFONIA"
	AreaEquipment = "EQUIPOS"
	AreaEmail     = "CORREO"
	AreaSoftware  = "SOFTWARE"
	AreaNetwork   = "REDES"
	AreaGeneral   = "GENERAL"
)

// areaKeywords is checked in order; the first matching keyword wins.
var areaKeywords = []struct {
	area     string
	keywords []string
}{
	{AreaInternet, []string{"internet"}},
	{AreaTelephony, []string{"telefon"}},
	{AreaEquipment, []string{"equipo", "impresora", "proyector"}},
	{AreaEmail, []string{"correo"}},
	{AreaSoftware, []string{"software", "office", "teams"}},
	{AreaNetwork, []string{"red", "wifi", "nodo"}},
}

// ClassifyArea maps a free-text category to an area tag with a case and
// accent insensitive substring match.
func ClassifyArea(category string) string {
	folded := fold(category)
	for _, entry := range areaKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(folded, kw) {
				return entry.area
			}
		}
	}
	return AreaGeneral
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
