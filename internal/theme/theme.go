// Package theme defines the color palettes of the interface.
package theme

import "strings"

// Default is the theme used when none is stored.
const Default = "Default Light"

// Colors is the palette of one theme. Values are hex colors.
type Colors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Background string `json:"background"`
	Text       string `json:"text"`
	Border     string `json:"border"`
	Success    string `json:"success"`
	Warning    string `json:"warning"`
	Danger     string `json:"danger"`
	Info       string `json:"info"`
}

// Theme is a named palette.
type Theme struct {
	Name   string
	Colors Colors
}

var builtIn = []Theme{
	{Name: "Default Light", Colors: Colors{
		Primary: "#2196f3", Secondary: "#6c757d", Background: "#f8f9fa", Text: "#2c3e50", Border: "#a7d9ed",
		Success: "#4caf50", Warning: "#ffc107", Danger: "#f44336", Info: "#03a9f4",
	}},
	{Name: "Sky", Colors: Colors{
		Primary: "#2196f3", Secondary: "#6c757d", Background: "#e0f2f7", Text: "#2c3e50", Border: "#a7d9ed",
		Success: "#4caf50", Warning: "#ffc107", Danger: "#f44336", Info: "#03a9f4",
	}},
	{Name: "Dark", Colors: Colors{
		Primary: "#64ffda", Secondary: "#8892b0", Background: "#0a192f", Text: "#ccd6f6", Border: "#1d3d5d",
		Success: "#64ffda", Warning: "#ffc107", Danger: "#f44336", Info: "#03a9f4",
	}},
	{Name: "Solarized", Colors: Colors{
		Primary: "#268bd2", Secondary: "#586e75", Background: "#fdf6e3", Text: "#657b83", Border: "#eee8d5",
		Success: "#859900", Warning: "#b58900", Danger: "#dc322f", Info: "#2aa198",
	}},
	{Name: "Dracula", Colors: Colors{
		Primary: "#bd93f9", Secondary: "#6272a4", Background: "#282a36", Text: "#f8f8f2", Border: "#44475a",
		Success: "#50fa7b", Warning: "#f1fa8c", Danger: "#ff5555", Info: "#8be9fd",
	}},
	{Name: "Gruvbox", Colors: Colors{
		Primary: "#fabd2f", Secondary: "#a89984", Background: "#282828", Text: "#ebdbb2", Border: "#504945",
		Success: "#b8bb26", Warning: "#fe8019", Danger: "#cc241d", Info: "#83a598",
	}},
	{Name: "VS Code Dark", Colors: Colors{
		Primary: "#007ACC", Secondary: "#858585", Background: "#1E1E1E", Text: "#D4D4D4", Border: "#333333",
		Success: "#6A9955", Warning: "#CD9731", Danger: "#F44747", Info: "#569CD6",
	}},
}

// Names returns the built-in theme names in display order.
func Names() []string {
	names := make([]string, 0, len(builtIn))
	for _, t := range builtIn {
		names = append(names, t.Name)
	}
	return names
}

// Lookup finds a theme by name, ignoring case and surrounding space.
func Lookup(name string) (Theme, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, t := range builtIn {
		if strings.ToLower(t.Name) == key {
			return t, true
		}
	}
	return Theme{}, false
}

// Resolve returns the named theme, or the default theme if it is unknown.
func Resolve(name string) Theme {
	if t, ok := Lookup(name); ok {
		return t
	}
	t, _ := Lookup(Default)
	return t
}

// DerivedProperties expands a palette into the CSS custom properties the
// web interface styles itself with.
func DerivedProperties(c Colors) map[string]string {
	return map[string]string{
		"--bg-color":                        c.Background,
		"--text-color":                      c.Text,
		"--border-color":                    c.Border,
		"--nav-link-color":                  c.Secondary,
		"--nav-link-active-color":           c.Primary,
		"--nav-link-active-bg":              c.Background,
		"--nav-link-active-border":          c.Primary,
		"--tab-content-bg":                  c.Background,
		"--tab-content-border":              c.Border,
		"--list-group-item-bg":              c.Background,
		"--list-group-item-border":          c.Border,
		"--list-group-item-hover-bg":        c.Border,
		"--form-control-bg":                 c.Background,
		"--form-control-color":              c.Text,
		"--form-control-border":             c.Border,
		"--form-control-focus-border":       c.Primary,
		"--btn-primary-bg":                  c.Primary,
		"--btn-primary-border":              c.Primary,
		"--btn-primary-hover-bg":            c.Primary,
		"--btn-primary-hover-border":        c.Primary,
		"--btn-outline-danger-color":        c.Danger,
		"--btn-outline-danger-border":       c.Danger,
		"--btn-outline-danger-hover-bg":     c.Danger,
		"--btn-outline-danger-hover-color":  "#ffffff",
		"--btn-outline-primary-color":       c.Primary,
		"--btn-outline-primary-border":      c.Primary,
		"--btn-outline-primary-hover-bg":    c.Primary,
		"--btn-outline-primary-hover-color": "#ffffff",
		"--input-group-text-bg":             c.Background,
		"--input-group-text-border":         c.Border,
		"--input-group-text-color":          c.Text,
		"--response-bg":                     c.Background,
		"--response-text-color":             c.Text,
		"--badge-success-bg":                c.Success,
		"--badge-warning-bg":                c.Warning,
		"--badge-warning-color":             c.Text,
		"--badge-info-bg":                   c.Info,
		"--badge-danger-bg":                 c.Danger,
		"--text-muted-color":                c.Secondary,
	}
}

// Role is a semantic palette slot.
type Role string

const (
	RoleSuccess   Role = "success"
	RoleWarning   Role = "warning"
	RoleInfo      Role = "info"
	RoleDanger    Role = "danger"
	RoleSecondary Role = "secondary"
)

// MethodColor returns the palette role used to badge an HTTP method.
func MethodColor(method string) Role {
	switch strings.ToUpper(method) {
	case "GET":
		return RoleSuccess
	case "POST":
		return RoleWarning
	case "PUT":
		return RoleInfo
	case "DELETE":
		return RoleDanger
	default:
		return RoleSecondary
	}
}

// Color returns the hex color of role.
func (c Colors) Color(role Role) string {
	switch role {
	case RoleSuccess:
		return c.Success
	case RoleWarning:
		return c.Warning
	case RoleInfo:
		return c.Info
	case RoleDanger:
		return c.Danger
	default:
		return c.Secondary
	}
}
