package theme

import "github.com/charmbracelet/lipgloss"

func builtins() []*Theme {
	return []*Theme{
		CatppuccinMocha(),
		CatppuccinLatte(),
		ControlRoom(),
		Blueprint(),
	}
}

// CatppuccinMocha returns the Catppuccin Mocha theme (default)
func CatppuccinMocha() *Theme {
	return &Theme{
		Name:        "catppuccin-mocha",
		Description: "Soothing pastel theme (dark)",
		Type:        "dark",

		Primary:   lipgloss.Color("#CBA6F7"), // Mauve
		Secondary: lipgloss.Color("#89B4FA"), // Blue
		Accent:    lipgloss.Color("#F5C2E7"), // Pink
		Success:   lipgloss.Color("#A6E3A1"), // Green
		Warning:   lipgloss.Color("#F9E2AF"), // Yellow
		Error:     lipgloss.Color("#F38BA8"), // Red
		Info:      lipgloss.Color("#89DCEB"), // Sky

		Text:      lipgloss.Color("#CDD6F4"),
		TextMuted: lipgloss.Color("#A6ADC8"),
		TextDim:   lipgloss.Color("#6C7086"),

		Background:      lipgloss.Color("#1E1E2E"),
		Surface:         lipgloss.Color("#313244"),
		Border:          lipgloss.Color("#6C7086"),
		BorderHighlight: lipgloss.Color("#CBA6F7"),

		User:      lipgloss.Color("#89B4FA"),
		Assistant: lipgloss.Color("#CDD6F4"),

		SyntaxTheme: "monokai",
	}
}

// CatppuccinLatte returns the Catppuccin Latte theme
func CatppuccinLatte() *Theme {
	return &Theme{
		Name:        "catppuccin-latte",
		Description: "Soothing pastel theme (light)",
		Type:        "light",

		Primary:   lipgloss.Color("#8839EF"),
		Secondary: lipgloss.Color("#1E66F5"),
		Accent:    lipgloss.Color("#EA76CB"),
		Success:   lipgloss.Color("#40A02B"),
		Warning:   lipgloss.Color("#DF8E1D"),
		Error:     lipgloss.Color("#D20F39"),
		Info:      lipgloss.Color("#04A5E5"),

		Text:      lipgloss.Color("#4C4F69"),
		TextMuted: lipgloss.Color("#6C6F85"),
		TextDim:   lipgloss.Color("#9CA0B0"),

		Background:      lipgloss.Color("#EFF1F5"),
		Surface:         lipgloss.Color("#CCD0DA"),
		Border:          lipgloss.Color("#9CA0B0"),
		BorderHighlight: lipgloss.Color("#8839EF"),

		User:      lipgloss.Color("#1E66F5"),
		Assistant: lipgloss.Color("#4C4F69"),

		SyntaxTheme: "catppuccin-latte",
	}
}

// ControlRoom is a high-contrast dark scheme modelled on SCADA/HMI screens:
// grey background, green for running/valid, red for alarms, amber for caution.
func ControlRoom() *Theme {
	return &Theme{
		Name:        "control-room",
		Description: "High-contrast HMI palette (dark)",
		Type:        "dark",

		Primary:   lipgloss.Color("#4FC3F7"),
		Secondary: lipgloss.Color("#90A4AE"),
		Accent:    lipgloss.Color("#FFD54F"),
		Success:   lipgloss.Color("#00E676"),
		Warning:   lipgloss.Color("#FFB300"),
		Error:     lipgloss.Color("#FF1744"),
		Info:      lipgloss.Color("#40C4FF"),

		Text:      lipgloss.Color("#ECEFF1"),
		TextMuted: lipgloss.Color("#B0BEC5"),
		TextDim:   lipgloss.Color("#607D8B"),

		Background:      lipgloss.Color("#263238"),
		Surface:         lipgloss.Color("#37474F"),
		Border:          lipgloss.Color("#546E7A"),
		BorderHighlight: lipgloss.Color("#4FC3F7"),

		User:      lipgloss.Color("#4FC3F7"),
		Assistant: lipgloss.Color("#ECEFF1"),

		SyntaxTheme: "native",
	}
}

// Blueprint is a light scheme for bright shop-floor terminals.
func Blueprint() *Theme {
	return &Theme{
		Name:        "blueprint",
		Description: "Engineering drawing palette (light)",
		Type:        "light",

		Primary:   lipgloss.Color("#0D47A1"),
		Secondary: lipgloss.Color("#1565C0"),
		Accent:    lipgloss.Color("#6A1B9A"),
		Success:   lipgloss.Color("#2E7D32"),
		Warning:   lipgloss.Color("#EF6C00"),
		Error:     lipgloss.Color("#C62828"),
		Info:      lipgloss.Color("#0277BD"),

		Text:      lipgloss.Color("#1A237E"),
		TextMuted: lipgloss.Color("#455A64"),
		TextDim:   lipgloss.Color("#90A4AE"),

		Background:      lipgloss.Color("#F5F9FF"),
		Surface:         lipgloss.Color("#E3F2FD"),
		Border:          lipgloss.Color("#90CAF9"),
		BorderHighlight: lipgloss.Color("#0D47A1"),

		User:      lipgloss.Color("#1565C0"),
		Assistant: lipgloss.Color("#1A237E"),

		SyntaxTheme: "github",
	}
}
