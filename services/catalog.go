package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"stoplist-telegram/models"
)

// CategoryLabel names one menu category in display order.
type CategoryLabel struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// DefaultCategoryLabels is the display order used when no labels file exists.
var DefaultCategoryLabels = []CategoryLabel{
	{Key: "breakfast", Label: "Завтраки"},
	{Key: "appetizers", Label: "На закуску"},
	{Key: "salads", Label: "Салаты"},
	{Key: "main", Label: "Рыба и морепродукты"},
	{Key: "desserts", Label: "Горячие закуски"},
	{Key: "beef", Label: "Мясо и птица"},
	{Key: "steak", Label: "Из печи"},
	{Key: "fire", Label: "Супы"},
	{Key: "lepka", Label: "Лепка"},
	{Key: "garn", Label: "Гарниры"},
	{Key: "des", Label: "Десерты"},
}

type labelsFile struct {
	Categories []CategoryLabel `yaml:"categories"`
}

// CatalogSource reads the menu file on every Load so edits show up without a
// restart.
type CatalogSource struct {
	menuPath   string
	labelsPath string
}

func NewCatalogSource(menuPath, labelsPath string) *CatalogSource {
	return &CatalogSource{menuPath: menuPath, labelsPath: labelsPath}
}

func (c *CatalogSource) Load() (*models.Catalog, error) {
	data, err := os.ReadFile(c.menuPath)
	if err != nil {
		return nil, fmt.Errorf("read menu %s: %w", c.menuPath, err)
	}
	var raw map[string][]models.Dish
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse menu %s: %w", c.menuPath, err)
	}
	labels, err := c.labels()
	if err != nil {
		return nil, err
	}
	return BuildCatalog(raw, labels), nil
}

func (c *CatalogSource) labels() ([]CategoryLabel, error) {
	if c.labelsPath == "" {
		return DefaultCategoryLabels, nil
	}
	data, err := os.ReadFile(c.labelsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultCategoryLabels, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read category labels %s: %w", c.labelsPath, err)
	}
	var f labelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse category labels %s: %w", c.labelsPath, err)
	}
	if len(f.Categories) == 0 {
		return DefaultCategoryLabels, nil
	}
	return f.Categories, nil
}

// BuildCatalog orders raw categories by labels. Keys without a label follow
// in sorted order and are labelled with the key itself.
func BuildCatalog(raw map[string][]models.Dish, labels []CategoryLabel) *models.Catalog {
	cat := &models.Catalog{}
	seen := make(map[string]bool, len(raw))
	for _, l := range labels {
		dishes, ok := raw[l.Key]
		if !ok || seen[l.Key] {
			continue
		}
		seen[l.Key] = true
		label := l.Label
		if label == "" {
			label = l.Key
		}
		cat.Categories = append(cat.Categories, models.Category{Key: l.Key, Label: label, Dishes: dishes})
	}

	var rest []string
	for key := range raw {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		cat.Categories = append(cat.Categories, models.Category{Key: key, Label: key, Dishes: raw[key]})
	}
	return cat
}

// FormatPrice renders a price the way the menu shows it, e.g. "350₽" or "99.5₽".
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "₽"
}
