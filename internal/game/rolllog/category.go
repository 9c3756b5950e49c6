package rolllog

import (
	"fmt"
	"strings"
)

// Category tags what a roll was for.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryAttack      Category = "attack"
	CategoryDamage      Category = "damage"
	CategoryHealing     Category = "healing"
	CategorySavingThrow Category = "saving_throw"
	CategorySkillCheck  Category = "skill_check"
	CategoryInitiative  Category = "initiative"
	CategoryAbility     Category = "ability"
)

// Categories lists every known Category in display order.
var Categories = []Category{
	CategoryGeneral, CategoryAttack, CategoryDamage, CategoryHealing,
	CategorySavingThrow, CategorySkillCheck, CategoryInitiative, CategoryAbility,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Title returns the display name, e.g. "Saving Throw".
func (c Category) Title() string {
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ParseCategory converts s to a Category. The empty string maps to CategoryGeneral.
//
// Postcondition: Returns a valid Category or an error naming s.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryGeneral, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("rolllog: unknown category %q", s)
	}
	return c, nil
}
