package domain

// Presentation mapping is kept apart from classification so the evaluators
// stay free of any UI concern. Clients may override these defaults.

// NeutralColor is used for the Unknown fallback evaluation
const NeutralColor = "#9E9E9E"

var statusColors = map[HealthStatus]string{
	StatusVeryPoor:  "#D32F2F",
	StatusPoor:      "#F57C00",
	StatusFair:      "#FBC02D",
	StatusGood:      "#7CB342",
	StatusExcellent: "#388E3C",
}

var statusIcons = map[HealthStatus]string{
	StatusVeryPoor:  "exclamationmark.triangle.fill",
	StatusPoor:      "arrow.down.circle",
	StatusFair:      "minus.circle",
	StatusGood:      "arrow.up.circle",
	StatusExcellent: "star.circle.fill",
}

// StatusColor returns the display color (hex) for a health status
func StatusColor(status HealthStatus) string {
	if color, ok := statusColors[status]; ok {
		return color
	}
	return NeutralColor
}

// StatusIcon returns the display icon name for a health status
func StatusIcon(status HealthStatus) string {
	if icon, ok := statusIcons[status]; ok {
		return icon
	}
	return "questionmark.circle"
}
