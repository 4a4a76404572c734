// Package menus holds the bot's screens: static titles and button layouts
// loaded from an embedded YAML catalogue.
package menus

import (
	_ "embed"
	"fmt"
	"html"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed menus.yaml
var catalogYAML []byte

// maxCallbackData is Telegram's limit on callback payloads, in bytes.
const maxCallbackData = 64

type Button struct {
	Label string `yaml:"label"`
	Data  string `yaml:"data"`
}

// Screen is one rendered message: an HTML title and an inline keyboard.
type Screen struct {
	Title   string     `yaml:"title"`
	Buttons [][]Button `yaml:"buttons"`
}

// Vars fills {name} placeholders.
type Vars map[string]string

type Catalog struct {
	screens map[string]Screen
	texts   map[string]string
}

// Load parses the embedded catalogue.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Screens map[string]Screen `yaml:"screens"`
		Texts   map[string]string `yaml:"texts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse menus: %w", err)
	}
	for name, s := range doc.Screens {
		if strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("screen %q: empty title", name)
		}
		for _, row := range s.Buttons {
			for _, b := range row {
				if b.Label == "" || b.Data == "" {
					return nil, fmt.Errorf("screen %q: button needs label and data", name)
				}
				if len(b.Data) > maxCallbackData {
					return nil, fmt.Errorf("screen %q: callback %q longer than %d bytes", name, b.Data, maxCallbackData)
				}
			}
		}
	}
	return &Catalog{screens: doc.Screens, texts: doc.Texts}, nil
}

// Render builds a screen. rows are placed above the screen's own buttons.
// Rendering an undefined screen is a programming error and panics.
func (c *Catalog) Render(name string, vars Vars, rows ...[]Button) Screen {
	s, ok := c.screens[name]
	if !ok {
		panic(fmt.Sprintf("menus: no screen %q", name))
	}
	escaped, raw := replacers(vars)
	out := Screen{Title: escaped.Replace(s.Title)}
	out.Buttons = append(out.Buttons, rows...)
	for _, row := range s.Buttons {
		r := make([]Button, len(row))
		for i, b := range row {
			r[i] = Button{Label: raw.Replace(b.Label), Data: raw.Replace(b.Data)}
		}
		out.Buttons = append(out.Buttons, r)
	}
	return out
}

// Text returns a catalogue string with vars filled in. Texts are plain and
// get escaped when passed into a screen.
func (c *Catalog) Text(name string, vars Vars) string {
	t, ok := c.texts[name]
	if !ok {
		panic(fmt.Sprintf("menus: no text %q", name))
	}
	_, raw := replacers(vars)
	return raw.Replace(t)
}

// Row is a convenience for building one keyboard row.
func Row(buttons ...Button) []Button { return buttons }

func Btn(label, data string) Button { return Button{Label: label, Data: data} }

// Grid lays buttons out cols per row.
func Grid(buttons []Button, cols int) [][]Button {
	var rows [][]Button
	for len(buttons) > 0 {
		n := min(cols, len(buttons))
		rows = append(rows, buttons[:n:n])
		buttons = buttons[n:]
	}
	return rows
}

func replacers(vars Vars) (escaped, raw *strings.Replacer) {
	var e, r []string
	for k, v := range vars {
		e = append(e, "{"+k+"}", html.EscapeString(v))
		r = append(r, "{"+k+"}", v)
	}
	return strings.NewReplacer(e...), strings.NewReplacer(r...)
}
