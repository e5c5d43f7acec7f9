// Package catalog содержит справочные данные пиццерии: размеры, коржи, топпинги и гарниры.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Item описывает позицию каталога. Цена хранится целым числом в денежных единицах каталога.
type Item struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Price int64  `json:"price" yaml:"price"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Group объединяет гарниры одного типа.
type Group struct {
	Type  string `json:"type"`
	Items []Item `json:"items"`
}

// Catalog содержит неизменяемые списки позиций, загружаемые один раз при старте.
type Catalog struct {
	Sizes    []Item `json:"sizes" yaml:"sizes"`
	Crusts   []Item `json:"crusts" yaml:"crusts"`
	Toppings []Item `json:"toppings" yaml:"toppings"`
	Sides    []Item `json:"sides" yaml:"sides"`
}

// ErrInvalidCatalog возвращается, если каталог содержит некорректные позиции.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Default возвращает встроенный каталог пиццерии.
func Default() *Catalog {
	return &Catalog{
		Sizes: []Item{
			{ID: "small", Name: `Small 10"`, Price: 299},
			{ID: "medium", Name: `Medium 12"`, Price: 399},
			{ID: "large", Name: `Large 14"`, Price: 499},
		},
		Crusts: []Item{
			{ID: "regular", Name: "Regular", Price: 0},
			{ID: "thin", Name: "Thin", Price: 30},
			{ID: "thick", Name: "Thick", Price: 60},
			{ID: "stuffed", Name: "Stuffed", Price: 90},
		},
		Toppings: []Item{
			{ID: "pepperoni", Name: "Pepperoni", Price: 30},
			{ID: "sausage", Name: "Sausage", Price: 30},
			{ID: "mushrooms", Name: "Mushrooms", Price: 20},
			{ID: "green_peppers", Name: "Green Peppers", Price: 20},
			{ID: "onions", Name: "Onions", Price: 15},
			{ID: "black_olives", Name: "Black Olives", Price: 20},
			{ID: "extra_cheese", Name: "Extra Cheese", Price: 25},
			{ID: "bacon", Name: "Bacon", Price: 35},
			{ID: "ham", Name: "Ham", Price: 35},
			{ID: "pineapple", Name: "Pineapple", Price: 25},
			{ID: "jalapenos", Name: "Jalapeños", Price: 20},
			{ID: "tomatoes", Name: "Tomatoes", Price: 15},
		},
		Sides: []Item{
			{ID: "coke", Name: "Coke (500ml)", Price: 50, Type: "Drink"},
			{ID: "sprite", Name: "Sprite (500ml)", Price: 50, Type: "Drink"},
			{ID: "garlic_dip", Name: "Garlic Dip", Price: 30, Type: "Dip"},
			{ID: "mayo_dip", Name: "Mayo Dip", Price: 30, Type: "Dip"},
			{ID: "fries", Name: "Fries", Price: 99, Type: "Side"},
		},
	}
}

// Load читает каталог из YAML-файла. При пустом пути возвращается встроенный каталог.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	return Parse(data)
}

// Parse разбирает YAML-представление каталога и проверяет его корректность.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate проверяет уникальность идентификаторов и неотрицательность цен.
func (c *Catalog) Validate() error {
	lists := []struct {
		name  string
		items []Item
	}{
		{"sizes", c.Sizes},
		{"crusts", c.Crusts},
		{"toppings", c.Toppings},
		{"sides", c.Sides},
	}

	for _, l := range lists {
		seen := make(map[string]struct{}, len(l.items))
		for i, it := range l.items {
			if it.ID == "" {
				return fmt.Errorf("%w: %s[%d] has empty id", ErrInvalidCatalog, l.name, i)
			}
			if _, ok := seen[it.ID]; ok {
				return fmt.Errorf("%w: duplicate id %q in %s", ErrInvalidCatalog, it.ID, l.name)
			}
			seen[it.ID] = struct{}{}

			if it.Price < 0 {
				return fmt.Errorf("%w: %s %q has negative price", ErrInvalidCatalog, l.name, it.ID)
			}
		}
	}

	for _, s := range c.Sides {
		if s.Type == "" {
			return fmt.Errorf("%w: side %q has no type", ErrInvalidCatalog, s.ID)
		}
	}

	return nil
}

// Find ищет позицию по идентификатору в списке.
func Find(list []Item, id string) (Item, bool) {
	for _, it := range list {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Size ищет размер пиццы по идентификатору.
func (c *Catalog) Size(id string) (Item, bool) { return Find(c.Sizes, id) }

// Crust ищет корж по идентификатору.
func (c *Catalog) Crust(id string) (Item, bool) { return Find(c.Crusts, id) }

// Topping ищет топпинг по идентификатору.
func (c *Catalog) Topping(id string) (Item, bool) { return Find(c.Toppings, id) }

// Side ищет гарнир по идентификатору.
func (c *Catalog) Side(id string) (Item, bool) { return Find(c.Sides, id) }

// SidesByType группирует гарниры по типу в порядке первого появления типа.
func (c *Catalog) SidesByType() []Group {
	var groups []Group
	index := make(map[string]int)

	for _, s := range c.Sides {
		i, ok := index[s.Type]
		if !ok {
			i = len(groups)
			index[s.Type] = i
			groups = append(groups, Group{Type: s.Type})
		}
		groups[i].Items = append(groups[i].Items, s)
	}

	return groups
}
