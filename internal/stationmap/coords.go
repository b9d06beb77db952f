package stationmap

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hydrolink/hydrolink-core/internal/reading"
)

// Coord is a WGS84 station position.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// mqttCoords positions the MQTT gateway devices, keyed by device code.
var mqttCoords = map[string]Coord{
	"G30A":    {9.1712, 105.1498},
	"G30B":    {9.1718, 105.1503},
	"GS1_NM1": {9.1788, 105.1524},
	"GS1_NM2": {9.1797, 105.1530},
	"GS2_NM1": {9.1782, 105.1518},
	"QT1_NM1": {9.1775, 105.1512},
	"QT1_NM2": {9.1808, 105.1541},
	"QT2_NM2": {9.1812, 105.1548},
}

// scadaCoords positions SCADA stations, keyed by both station ID and
// full display name (the API reports IDs, the grouped snapshot names).
var scadaCoords = map[string]Coord{
	"G4_NM1":  {9.1794, 105.1528},
	"G4_NM2":  {9.1801, 105.1532},
	"G5_NM1":  {9.1785, 105.1535},
	"TRAM_1":  {9.1770, 105.1520},
	"TRAM_24": {9.1805, 105.1545},

	"GIẾNG 4 NHÀ MÁY 1": {9.1794, 105.1528},
	"GIẾNG 4 NHÀ MÁY 2": {9.1801, 105.1532},
	"GIẾNG 5 NHÀ MÁY 1": {9.1785, 105.1535},

	"TRẠM BƠM SỐ 1":         {9.1770, 105.1520},
	"TRẠM BƠM SỐ 24 (QT24)": {9.1805, 105.1545},
}

// tvaCoords positions the monitoring portal stations, keyed by the
// station names as the portal renders them.
var tvaCoords = map[string]Coord{
	"QT1-NM1 (2185/GP-BTNMT)": {9.1775, 105.1512},
	"QT1-NM2 (2187/GP-BTNMT)": {9.1808, 105.1541},
	"QT2-NM1 (2186/GP-BTNMT)": {9.1765, 105.1508},
	"QT2-NM2 (2188/GP-BTNMT)": {9.1812, 105.1548},
}

// idPattern derives a coordinate-table key from a station display name.
type idPattern struct {
	re     *regexp.Regexp
	format func(m []string) string
}

var stationIDPatterns = []idPattern{
	{
		re:     regexp.MustCompile(`(?i)GIẾNG (\d+) NHÀ MÁY (\d+)`),
		format: func(m []string) string { return fmt.Sprintf("G%s_NM%s", m[1], m[2]) },
	},
	{
		re:     regexp.MustCompile(`(?i)TRẠM BƠM SỐ (\d+)`),
		format: func(m []string) string { return "TRAM_" + m[1] },
	},
	{
		re:     regexp.MustCompile(`(?i)TRẠM (\d+)`),
		format: func(m []string) string { return "TRAM_" + m[1] },
	},
	{
		re:     regexp.MustCompile(`(?i)^(G\d+[AB]?)$`),
		format: func(m []string) string { return strings.ToUpper(m[1]) },
	},
	{
		re:     regexp.MustCompile(`(?i)^(QT\d+[A-Z]?)(_NM\d+)?$`),
		format: func(m []string) string { return strings.ToUpper(m[1] + m[2]) },
	},
	{
		re:     regexp.MustCompile(`(?i)^(GS\d+)_NM(\d+)$`),
		format: func(m []string) string { return strings.ToUpper(m[1]) + "_NM" + m[2] },
	},
}

// StationCoordinates resolves a station position for a source by display
// name. Lookup order: exact key, then a station ID derived from the name
// ("GIẾNG 4 NHÀ MÁY 2" → "G4_NM2"), then case-insensitive key match.
func StationCoordinates(src reading.Source, stationName string) (Coord, bool) {
	var table map[string]Coord
	switch src {
	case reading.SourceTVA:
		table = tvaCoords
	case reading.SourceMQTT:
		table = mqttCoords
	case reading.SourceSCADA:
		table = scadaCoords
	default:
		return Coord{}, false
	}
	return findCoordinates(stationName, table)
}

// DeviceCoordinates resolves an MQTT device position by device code.
func DeviceCoordinates(deviceCode string) (Coord, bool) {
	c, ok := mqttCoords[deviceCode]
	return c, ok
}

func findCoordinates(stationName string, table map[string]Coord) (Coord, bool) {
	if c, ok := table[stationName]; ok {
		return c, true
	}

	for _, p := range stationIDPatterns {
		m := p.re.FindStringSubmatch(stationName)
		if m == nil {
			continue
		}
		if c, ok := table[p.format(m)]; ok {
			return c, true
		}
	}

	lower := strings.ToLower(stationName)
	for key, c := range table {
		if strings.ToLower(key) == lower {
			return c, true
		}
	}

	return Coord{}, false
}
