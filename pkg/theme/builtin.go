package theme

// Powerline arrow, U+E0B2, pointing left so the bar reads right to left.
const thDefaultSeparator = "\ue0b2"

// thRegisterBuiltins registers all built-in themes in the registry.
func thRegisterBuiltins() {
	for _, t := range []Theme{
		thNordTheme(),
		thGruvboxTheme(),
		thCatppuccinTheme(),
		thDraculaTheme(),
		thTokyoNightTheme(),
	} {
		thRegister(t)
	}
}

// thNordTheme returns the cool arctic Nord theme.
func thNordTheme() Theme {
	return Theme{
		Name: "nord",
		Bg:   "#2e3440",
		Fg:   "#d8dee9",
		Dim:  "#4c566a",

		Red:    "#bf616a",
		Orange: "#d08770",
		Yellow: "#ebcb8b",
		Green:  "#a3be8c",
		Purple: "#b48ead",
		Blue:   "#88c0d0",

		UrgentFg: "#2e3440",
		UrgentBg: "#bf616a",

		PowerlineSeparator: thDefaultSeparator,
		Powerline: []PowerlinePair{
			{Fg: "#d8dee9", Bg: "#3b4252"},
			{Fg: "#e5e9f0", Bg: "#434c5e"},
			{Fg: "#eceff4", Bg: "#4c566a"},
			{Fg: "#e5e9f0", Bg: "#434c5e"},
		},
	}
}

// thGruvboxTheme returns the warm retro Gruvbox theme.
func thGruvboxTheme() Theme {
	return Theme{
		Name: "gruvbox",
		Bg:   "#282828",
		Fg:   "#ebdbb2",
		Dim:  "#928374",

		Red:    "#fb4934",
		Orange: "#fe8019",
		Yellow: "#fabd2f",
		Green:  "#b8bb26",
		Purple: "#d3869b",
		Blue:   "#83a598",

		UrgentFg: "#282828",
		UrgentBg: "#fb4934",

		PowerlineSeparator: thDefaultSeparator,
		Powerline: []PowerlinePair{
			{Fg: "#ebdbb2", Bg: "#3c3836"},
			{Fg: "#ebdbb2", Bg: "#504945"},
			{Fg: "#fbf1c7", Bg: "#665c54"},
		},
	}
}

// thCatppuccinTheme returns the pastel Catppuccin Mocha theme.
func thCatppuccinTheme() Theme {
	return Theme{
		Name: "catppuccin",
		Bg:   "#1e1e2e",
		Fg:   "#cdd6f4",
		Dim:  "#6c7086",

		Red:    "#f38ba8",
		Orange: "#fab387",
		Yellow: "#f9e2af",
		Green:  "#a6e3a1",
		Purple: "#cba6f7",
		Blue:   "#89b4fa",

		UrgentFg: "#1e1e2e",
		UrgentBg: "#f38ba8",

		PowerlineSeparator: thDefaultSeparator,
		Powerline: []PowerlinePair{
			{Fg: "#cdd6f4", Bg: "#313244"},
			{Fg: "#cdd6f4", Bg: "#45475a"},
		},
	}
}

// thDraculaTheme returns the dark Dracula theme.
func thDraculaTheme() Theme {
	return Theme{
		Name: "dracula",
		Bg:   "#282a36",
		Fg:   "#f8f8f2",
		Dim:  "#6272a4",

		Red:    "#ff5555",
		Orange: "#ffb86c",
		Yellow: "#f1fa8c",
		Green:  "#50fa7b",
		Purple: "#bd93f9",
		Blue:   "#8be9fd",

		UrgentFg: "#282a36",
		UrgentBg: "#ff5555",

		PowerlineSeparator: thDefaultSeparator,
		Powerline: []PowerlinePair{
			{Fg: "#f8f8f2", Bg: "#44475a"},
			{Fg: "#f8f8f2", Bg: "#6272a4"},
		},
	}
}

// thTokyoNightTheme returns the Tokyo Night theme.
func thTokyoNightTheme() Theme {
	return Theme{
		Name: "tokyo-night",
		Bg:   "#1a1b26",
		Fg:   "#c0caf5",
		Dim:  "#565f89",

		Red:    "#f7768e",
		Orange: "#ff9e64",
		Yellow: "#e0af68",
		Green:  "#9ece6a",
		Purple: "#bb9af7",
		Blue:   "#7aa2f7",

		UrgentFg: "#1a1b26",
		UrgentBg: "#f7768e",

		PowerlineSeparator: thDefaultSeparator,
		Powerline: []PowerlinePair{
			{Fg: "#c0caf5", Bg: "#292e42"},
			{Fg: "#c0caf5", Bg: "#3b4261"},
			{Fg: "#c0caf5", Bg: "#414868"},
		},
	}
}
