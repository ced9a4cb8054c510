// Package catalog turns the data service's product rows into the menu a page
// session renders: menu items plus the categories they are grouped under.
package catalog

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"menu-api/domain"
)

const (
	// CatchAllName labels products whose description names no category.
	CatchAllName = "Otros"
	// PlaceholderImage is served for products without an image.
	PlaceholderImage = "/placeholder.svg"
)

// CatchAllID is the slug of the catch-all category.
var CatchAllID = Slug(CatchAllName)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slug derives a category id from its label.
func Slug(label string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(label), "-")
}

// splitDescription separates the "Category: text" convention used by business
// owners. The bool is false when the description carries no category.
func splitDescription(description string) (label, text string, ok bool) {
	before, after, found := strings.Cut(description, ":")
	if !found {
		return "", description, false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}

func categoryOf(p domain.Product) (label, text string) {
	desc := ""
	if p.Description != nil {
		desc = *p.Description
	}
	label, text, ok := splitDescription(desc)
	if !ok {
		return CatchAllName, text
	}
	return label, text
}

// ProjectItem converts one product into a menu item.
func ProjectItem(p domain.Product) domain.MenuItem {
	label, text := categoryOf(p)
	price := decimal.Zero
	if p.Price != nil {
		price = decimal.NewFromFloat(*p.Price)
	}
	image := PlaceholderImage
	if p.Image != nil && *p.Image != "" {
		image = *p.Image
	}
	return domain.MenuItem{
		ID:          p.ID,
		Name:        p.Name,
		Description: text,
		Price:       price,
		Image:       image,
		Category:    Slug(label),
	}
}

// Project converts products into menu items, preserving their order.
func Project(products []domain.Product) []domain.MenuItem {
	items := make([]domain.MenuItem, 0, len(products))
	for _, p := range products {
		items = append(items, ProjectItem(p))
	}
	return items
}

// Categories returns the distinct categories of products in first-seen order.
func Categories(products []domain.Product) []domain.Category {
	seen := make(map[string]struct{}, len(products))
	categories := []domain.Category{}
	for _, p := range products {
		label, _ := categoryOf(p)
		id := Slug(label)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		categories = append(categories, domain.Category{ID: id, Name: label})
	}
	return categories
}
