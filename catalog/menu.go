package catalog

import "menu-api/domain"

// Menu is the derived view of one business's catalog. It is rebuilt on every
// catalog load and never mutated afterwards.
type Menu struct {
	Business   domain.Business   `json:"business"`
	Categories []domain.Category `json:"categories"`
	Items      []domain.MenuItem `json:"items"`

	byID map[string]int
}

// Build derives the menu from the business's products. Unavailable products
// are skipped even if the data service returned them.
func Build(business domain.Business, products []domain.Product) *Menu {
	available := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Available() {
			available = append(available, p)
		}
	}

	m := &Menu{
		Business:   business,
		Categories: Categories(available),
		Items:      Project(available),
	}
	m.byID = make(map[string]int, len(m.Items))
	for i, item := range m.Items {
		if _, dup := m.byID[item.ID]; !dup {
			m.byID[item.ID] = i
		}
	}
	return m
}

// Item looks up a menu item by id.
func (m *Menu) Item(id string) (domain.MenuItem, bool) {
	if m == nil {
		return domain.MenuItem{}, false
	}
	i, ok := m.byID[id]
	if !ok {
		return domain.MenuItem{}, false
	}
	return m.Items[i], true
}

// ItemsIn returns the items of one category in catalog order.
func (m *Menu) ItemsIn(categoryID string) []domain.MenuItem {
	items := []domain.MenuItem{}
	for _, item := range m.Items {
		if item.Category == categoryID {
			items = append(items, item)
		}
	}
	return items
}

// CategoryIDs lists category ids in display order.
func (m *Menu) CategoryIDs() []string {
	ids := make([]string, len(m.Categories))
	for i, c := range m.Categories {
		ids[i] = c.ID
	}
	return ids
}
