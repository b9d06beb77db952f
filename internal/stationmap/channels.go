package stationmap

import "sort"

// ChannelMapping describes one SCADA channel: which station and parameter
// it carries, and the view it belongs to on the upstream server.
type ChannelMapping struct {
	StationID     string
	StationName   string
	Parameter     string
	ParameterName string
	Unit          string
	Group         string
	ViewID        int
}

// channels maps SCADA channel numbers to their station assignments,
// mirroring the upstream Rapid SCADA configuration:
//
//   - G5 NM1: 7 parameters (level, flow, total flow, pH, TDS, ammonium, nitrate)
//   - G4 NM2: 7 parameters
//   - G4 NM1: 3 parameters (level, flow, total flow)
//   - TRAM 1: 3 parameters
//   - TRAM 24 (QT24): 5 parameters (level, pH, TDS, ammonium, nitrate)
var channels = map[int]ChannelMapping{
	// G4 NM2 — base parameters (view 17)
	2902: {"G4_NM2", "GIẾNG 4 NHÀ MÁY 2", "MỰC_NƯỚC", "Mực Nước", "m", "GIẾNG", 17},
	2904: {"G4_NM2", "GIẾNG 4 NHÀ MÁY 2", "LƯU_LƯỢNG", "Lưu Lượng", "m³/h", "GIẾNG", 17},
	2905: {"G4_NM2", "GIẾNG 4 NHÀ MÁY 2", "TỔNG_LƯU_LƯỢNG", "Tổng Lưu Lượng", "m³", "GIẾNG", 17},
	// G4 NM2 — water quality (view 18)
	2932: {"G4_NM2", "GIẾNG 4 NHÀ MÁY 2", "AMONI", "Amoni", "mg/L", "GIẾNG", 18},
	2933: {"G4_NM2", "GIẾNG 4 NHÀ MÁY 2", "NITRAT", "Nitrat", "mg/L", "GIẾNG", 18},
	2934: {"G4_NM2", "GIẾNG 4 NHÀ MÁY 2", "PH", "Độ pH", "pH", "GIẾNG", 18},
	2935: {"G4_NM2", "GIẾNG 4 NHÀ MÁY 2", "TDS", "TDS", "mg/L", "GIẾNG", 18},

	// G5 NM1 — base parameters (view 17)
	2907: {"G5_NM1", "GIẾNG 5 NHÀ MÁY 1", "MỰC_NƯỚC", "Mực Nước", "m", "GIẾNG", 17},
	2909: {"G5_NM1", "GIẾNG 5 NHÀ MÁY 1", "LƯU_LƯỢNG", "Lưu Lượng", "m³/h", "GIẾNG", 17},
	2910: {"G5_NM1", "GIẾNG 5 NHÀ MÁY 1", "TỔNG_LƯU_LƯỢNG", "Tổng Lưu Lượng", "m³", "GIẾNG", 17},
	// G5 NM1 — water quality (view 18)
	2928: {"G5_NM1", "GIẾNG 5 NHÀ MÁY 1", "AMONI", "Amoni", "mg/L", "GIẾNG", 18},
	2929: {"G5_NM1", "GIẾNG 5 NHÀ MÁY 1", "NITRAT", "Nitrat", "mg/L", "GIẾNG", 18},
	2930: {"G5_NM1", "GIẾNG 5 NHÀ MÁY 1", "PH", "Độ pH", "pH", "GIẾNG", 18},
	2931: {"G5_NM1", "GIẾNG 5 NHÀ MÁY 1", "TDS", "TDS", "mg/L", "GIẾNG", 18},

	// G4 NM1 — base parameters only
	2912: {"G4_NM1", "GIẾNG 4 NHÀ MÁY 1", "MỰC_NƯỚC", "Mực Nước", "m", "GIẾNG", 17},
	2914: {"G4_NM1", "GIẾNG 4 NHÀ MÁY 1", "LƯU_LƯỢNG", "Lưu Lượng", "m³/h", "GIẾNG", 17},
	2915: {"G4_NM1", "GIẾNG 4 NHÀ MÁY 1", "TỔNG_LƯU_LƯỢNG", "Tổng Lưu Lượng", "m³", "GIẾNG", 17},

	// Pump station 1 — base parameters only
	2917: {"TRAM_1", "TRẠM BƠM SỐ 1", "MỰC_NƯỚC", "Mực Nước", "m", "TRẠM_BƠM", 17},
	2919: {"TRAM_1", "TRẠM BƠM SỐ 1", "LƯU_LƯỢNG", "Lưu Lượng", "m³/h", "TRẠM_BƠM", 17},
	2920: {"TRAM_1", "TRẠM BƠM SỐ 1", "TỔNG_LƯU_LƯỢNG", "Tổng Lưu Lượng", "m³", "TRẠM_BƠM", 17},

	// Pump station 24 (QT24) — level + water quality
	2922: {"TRAM_24", "TRẠM BƠM SỐ 24 (QT24)", "AMONI", "Amoni", "mg/L", "TRẠM_BƠM", 18},
	2923: {"TRAM_24", "TRẠM BƠM SỐ 24 (QT24)", "MỰC_NƯỚC", "Mực Nước", "m", "TRẠM_BƠM", 18},
	2925: {"TRAM_24", "TRẠM BƠM SỐ 24 (QT24)", "NITRAT", "Nitrat", "mg/L", "TRẠM_BƠM", 18},
	2926: {"TRAM_24", "TRẠM BƠM SỐ 24 (QT24)", "PH", "Độ pH", "pH", "TRẠM_BƠM", 18},
	2927: {"TRAM_24", "TRẠM BƠM SỐ 24 (QT24)", "TDS", "TDS", "mg/L", "TRẠM_BƠM", 18},
}

// Channel returns the mapping for a SCADA channel number.
func Channel(cnlNum int) (ChannelMapping, bool) {
	m, ok := channels[cnlNum]
	return m, ok
}

// ChannelNums returns all mapped channel numbers in ascending order.
// Used as the fallback cnlNums query when the view-based API fails.
func ChannelNums() []int {
	nums := make([]int, 0, len(channels))
	for n := range channels {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}
