package stationmap

import "strings"

// deviceNames maps MQTT gateway device codes to station display names.
// Devices missing from this table are dropped with a warning: the
// gateways occasionally emit tags for decommissioned or test equipment.
var deviceNames = map[string]string{
	"G30A":    "Giếng Khoan G30A",
	"G30B":    "Giếng Khoan G30B",
	"GS1_NM1": "Giám Sát 1 Nhà Máy 1",
	"GS1_NM2": "Giám Sát 1 Nhà Máy 2",
	"GS2_NM1": "Giám Sát 2 Nhà Máy 1",
	"QT1_NM1": "Quan Trắc 1 Nhà Máy 1",
	"QT1_NM2": "Quan Trắc 1 Nhà Máy 2",
	"QT2_NM2": "Quan Trắc 2 Nhà Máy 2",
}

// twoSegmentPrefixes are device families whose codes span two tag
// segments (GS1_NM2, QT1_NM1, ...). Everything else uses a single
// segment (G30A_MUCNUOC).
var twoSegmentPrefixes = map[string]bool{
	"GS1": true,
	"GS2": true,
	"QT1": true,
	"QT2": true,
}

// SplitTag splits a gateway tag into device code and parameter type.
//
//	"G30A_MUCNUOC"    → "G30A", "MUCNUOC"
//	"GS1_NM2_LUULUONG" → "GS1_NM2", "LUULUONG"
//
// Returns ok=false when the tag has no parameter part.
func SplitTag(tag string) (deviceCode, parameterType string, ok bool) {
	parts := strings.Split(tag, "_")
	if len(parts) < 2 {
		return "", "", false
	}

	deviceCode = parts[0]
	parameterType = strings.Join(parts[1:], "_")

	if len(parts) > 2 && twoSegmentPrefixes[parts[0]] {
		deviceCode = parts[0] + "_" + parts[1]
		parameterType = strings.Join(parts[2:], "_")
	}

	if parameterType == "" {
		return "", "", false
	}
	return deviceCode, parameterType, true
}

// DeviceStation returns the station display name for a device code.
func DeviceStation(deviceCode string) (string, bool) {
	name, ok := deviceNames[deviceCode]
	return name, ok
}

// parameterNames maps gateway parameter types to display names.
var parameterNames = map[string]string{
	"LUULUONG":     "Lưu Lượng",
	"MUCNUOC":      "Mực Nước",
	"NHIETDO":      "Nhiệt Độ",
	"TONGLUULUONG": "Tổng Lưu Lượng",
}

// parameterUnits maps gateway parameter types to measurement units.
var parameterUnits = map[string]string{
	"LUULUONG":     "m³/h",
	"MUCNUOC":      "m",
	"NHIETDO":      "°C",
	"TONGLUULUONG": "m³",
}

// ParamName returns the display name for a gateway parameter type,
// falling back to the raw type for unmapped parameters.
func ParamName(parameterType string) string {
	if name, ok := parameterNames[parameterType]; ok {
		return name
	}
	return parameterType
}

// ParamUnit returns the unit for a gateway parameter type, empty when
// unmapped.
func ParamUnit(parameterType string) string {
	return parameterUnits[parameterType]
}
