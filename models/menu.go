package models

// Dish is one catalog entry. IDs are unique across all categories.
type Dish struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Category is a catalog section in display order.
type Category struct {
	Key    string
	Label  string
	Dishes []Dish
}

// Catalog is the read-only menu: categories in the order they are shown to operators.
type Catalog struct {
	Categories []Category
}

func (c *Catalog) Category(key string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

// Dish finds a dish by id and returns the key of the category holding it.
func (c *Catalog) Dish(id int) (Dish, string, bool) {
	for _, cat := range c.Categories {
		for _, d := range cat.Dishes {
			if d.ID == id {
				return d, cat.Key, true
			}
		}
	}
	return Dish{}, "", false
}

// NonEmpty returns categories that have at least one dish.
func (c *Catalog) NonEmpty() []Category {
	out := make([]Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		if len(cat.Dishes) > 0 {
			out = append(out, cat)
		}
	}
	return out
}
