package focus

import (
	"fmt"
	"strings"
)

// Category classifies an application. Values below 10 are productive.
type Category uint8

const (
	CategoryUnknown       Category = 0
	CategoryIDE           Category = 1
	CategoryTerminal      Category = 2
	CategoryDocumentation Category = 3
	CategoryProductivity  Category = 4
	CategoryBrowser       Category = 5

	CategorySocialMedia   Category = 10
	CategoryCommunication Category = 11
	CategoryEntertainment Category = 12
	CategoryShopping      Category = 13
)

// Productive reports whether time in this category counts as focus.
// Unknown applications are given the benefit of the doubt.
func (c Category) Productive() bool {
	return c < 10
}

func (c Category) String() string {
	switch c {
	case CategoryUnknown:
		return "unknown"
	case CategoryIDE:
		return "ide"
	case CategoryTerminal:
		return "terminal"
	case CategoryDocumentation:
		return "documentation"
	case CategoryProductivity:
		return "productivity"
	case CategoryBrowser:
		return "browser"
	case CategorySocialMedia:
		return "social_media"
	case CategoryCommunication:
		return "communication"
	case CategoryEntertainment:
		return "entertainment"
	case CategoryShopping:
		return "shopping"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

var builtinCategories = map[string]Category{
	"code":            CategoryIDE,
	"cursor":          CategoryIDE,
	"goland":          CategoryIDE,
	"goland64":        CategoryIDE,
	"idea":            CategoryIDE,
	"idea64":          CategoryIDE,
	"pycharm":         CategoryIDE,
	"pycharm64":       CategoryIDE,
	"webstorm":        CategoryIDE,
	"clion":           CategoryIDE,
	"rider":           CategoryIDE,
	"devenv":          CategoryIDE,
	"nvim":            CategoryIDE,
	"vim":             CategoryIDE,
	"emacs":           CategoryIDE,
	"windowsterminal": CategoryTerminal,
	"cmd":             CategoryTerminal,
	"powershell":      CategoryTerminal,
	"pwsh":            CategoryTerminal,
	"alacritty":       CategoryTerminal,
	"kitty":           CategoryTerminal,
	"wezterm":         CategoryTerminal,
	"gnome-terminal":  CategoryTerminal,
	"iterm2":          CategoryTerminal,
	"terminal":        CategoryTerminal,
	"acrord32":        CategoryDocumentation,
	"evince":          CategoryDocumentation,
	"zathura":         CategoryDocumentation,
	"obsidian":        CategoryProductivity,
	"notion":          CategoryProductivity,
	"winword":         CategoryProductivity,
	"excel":           CategoryProductivity,
	"powerpnt":        CategoryProductivity,
	"onenote":         CategoryProductivity,
	"chrome":          CategoryBrowser,
	"firefox":         CategoryBrowser,
	"msedge":          CategoryBrowser,
	"safari":          CategoryBrowser,
	"twitter":         CategorySocialMedia,
	"tiktok":          CategorySocialMedia,
	"instagram":       CategorySocialMedia,
	"slack":           CategoryCommunication,
	"discord":         CategoryCommunication,
	"teams":           CategoryCommunication,
	"telegram":        CategoryCommunication,
	"steam":           CategoryEntertainment,
	"spotify":         CategoryEntertainment,
	"netflix":         CategoryEntertainment,
	"vlc":             CategoryEntertainment,
	"amazon":          CategoryShopping,
}

// normalizeApp lowercases an executable name and strips a trailing ".exe".
func normalizeApp(app string) string {
	app = strings.ToLower(strings.TrimSpace(app))
	return strings.TrimSuffix(app, ".exe")
}

// Classifier maps executable names to categories. Matching is exact after
// case folding and ".exe" removal.
type Classifier struct {
	apps map[string]Category
}

// NewClassifier builds a classifier from the built-in table and custom lists.
// Custom entries win over the table: a productive app keeps a productive
// built-in category or becomes Productivity, a distracting app keeps a
// distracting built-in category or becomes Entertainment.
func NewClassifier(productive, distracting []string) *Classifier {
	apps := make(map[string]Category, len(builtinCategories)+len(productive)+len(distracting))
	for name, cat := range builtinCategories {
		apps[name] = cat
	}
	for _, name := range productive {
		key := normalizeApp(name)
		if cat, ok := apps[key]; !ok || !cat.Productive() {
			apps[key] = CategoryProductivity
		}
	}
	for _, name := range distracting {
		key := normalizeApp(name)
		if cat, ok := apps[key]; !ok || cat.Productive() {
			apps[key] = CategoryEntertainment
		}
	}
	return &Classifier{apps: apps}
}

// Classify returns the category of app, or CategoryUnknown.
func (c *Classifier) Classify(app string) Category {
	return c.apps[normalizeApp(app)]
}
