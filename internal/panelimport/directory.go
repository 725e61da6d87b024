package panelimport

import (
	"strings"

	"github.com/rpattn/paneltrack/internal/domain"
)

// Directory indexes the panel and user reference collections by lowercased
// name. It is built once per run and never mutated afterwards.
type Directory struct {
	panels map[string]domain.Panel
	users  map[string]domain.User
}

// NewDirectory builds the lookup tables. When two entries share a name
// ignoring case, the first one wins.
func NewDirectory(panels []domain.Panel, users []domain.User) *Directory {
	d := &Directory{
		panels: make(map[string]domain.Panel, len(panels)),
		users:  make(map[string]domain.User, len(users)),
	}
	for _, panel := range panels {
		key := nameKey(panel.Name)
		if _, exists := d.panels[key]; !exists && key != "" {
			d.panels[key] = panel
		}
	}
	for _, user := range users {
		key := nameKey(user.Name)
		if _, exists := d.users[key]; !exists && key != "" {
			d.users[key] = user
		}
	}
	return d
}

// Panel finds a panel by case-insensitive name.
func (d *Directory) Panel(name string) (domain.Panel, bool) {
	panel, ok := d.panels[nameKey(name)]
	return panel, ok
}

// User finds a user by case-insensitive name.
func (d *Directory) User(name string) (domain.User, bool) {
	user, ok := d.users[nameKey(name)]
	return user, ok
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
