package ui

import (
	"fmt"
	"strings"

	"persona/internal/roster"
)

// charForm is the add/edit form of the characters tab. editID is empty when adding.
type charForm struct {
	editID string
	name   string
	alias  string
	image  string
	role   string
	index  int
}

func newCharForm() *charForm {
	return &charForm{role: string(roster.RoleHero)}
}

func editCharForm(c roster.Character) *charForm {
	d := roster.FromCharacter(c)
	return &charForm{
		editID: c.ID,
		name:   d.Name,
		alias:  d.Alias,
		image:  d.Image,
		role:   string(d.Role),
	}
}

func formFields() []string {
	return []string{"name", "alias", "image url", "role (Hero/Villain/Ally)"}
}

func (f charForm) currentLabel() string {
	return formFields()[f.index]
}

func (f charForm) currentValue() string {
	switch f.index {
	case 0:
		return f.name
	case 1:
		return f.alias
	case 2:
		return f.image
	case 3:
		return f.role
	default:
		return ""
	}
}

func (f *charForm) setCurrentValue(v string) {
	switch f.index {
	case 0:
		f.name = v
	case 1:
		f.alias = v
	case 2:
		f.image = v
	case 3:
		f.role = v
	}
}

func (f charForm) draft() (roster.Draft, error) {
	d := roster.Draft{Name: f.name, Alias: f.alias, Image: f.image}
	if strings.TrimSpace(f.role) == "" {
		return d, nil
	}
	role, err := roster.ParseRole(f.role)
	if err != nil {
		return d, err
	}
	d.Role = role
	return d, nil
}

func (f charForm) title() string {
	if f.editID == "" {
		return "New character"
	}
	return "Edit character"
}

func (f charForm) render() string {
	values := []string{f.name, f.alias, f.image, f.role}
	var b strings.Builder
	for i, name := range formFields() {
		prefix := " "
		if i == f.index {
			prefix = ">"
		}
		b.WriteString(fmt.Sprintf("%s %-24s : %s\n", prefix, name, emptyPlaceholder(values[i])))
	}
	return b.String()
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}
