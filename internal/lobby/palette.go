package lobby

type Color struct {
	Name string
	Hex  string
}

// Palette is handed out in order as players join.
var Palette = []Color{
	{Name: "red", Hex: "#dc322f"},
	{Name: "green", Hex: "#859900"},
	{Name: "blue", Hex: "#268bd2"},
	{Name: "yellow", Hex: "#b58900"},
	{Name: "magenta", Hex: "#d33682"},
	{Name: "cyan", Hex: "#2aa198"},
	{Name: "orange", Hex: "#cb4b16"},
	{Name: "violet", Hex: "#6c71c4"},
}
