package upsell

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"nightlife_order/cart"
	"nightlife_order/constants"
	"nightlife_order/model"

	"gopkg.in/yaml.v3"
)

// ProductBottle is the product type whose message always wins.
const ProductBottle = "bottle"

// Pairing suggests items from Targets categories when the cart holds an item
// of product type Trigger.
type Pairing struct {
	Trigger string   `yaml:"trigger"`
	Targets []string `yaml:"targets"`
	Message string   `yaml:"message"`
	// Override makes this pairing's message win over other triggered ones.
	Override bool `yaml:"override"`
}

// Table lists pairings. When several trigger, the message of an override
// pairing is shown, otherwise the first triggered one.
type Table struct {
	Pairings []Pairing `yaml:"pairings"`
}

func DefaultTable() Table {
	return Table{Pairings: []Pairing{
		{Trigger: ProductBottle, Targets: []string{"soft", "energy-drinks", "juice"}, Message: "Complete your bottle with mixers", Override: true},
		{Trigger: "shot", Targets: []string{"shot"}, Message: "Make it a round for the table"},
		{Trigger: "beer", Targets: []string{"food", "snacks"}, Message: "Something to snack on?"},
	}}
}

func ParseTable(raw []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Table{}, fmt.Errorf("parse pairings: %w", err)
	}
	for i, p := range t.Pairings {
		if strings.TrimSpace(p.Trigger) == "" || len(p.Targets) == 0 {
			return Table{}, fmt.Errorf("pairing %d needs a trigger and at least one target", i)
		}
		if strings.EqualFold(strings.TrimSpace(p.Trigger), ProductBottle) {
			t.Pairings[i].Override = true
		}
	}
	return t, nil
}

// LoadTable reads a pairing file, or returns the default table when path is empty.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read pairings: %w", err)
	}
	return ParseTable(raw)
}

type Result struct {
	Suggestions []model.MenuEntry `json:"suggestions"`
	Message     string            `json:"message,omitempty"`
}

// Recommend picks up to four available menu entries paired with what is in
// the cart. Popular items come first, then cheaper ones.
func (t Table) Recommend(items []cart.Item, menu []model.MenuEntry) Result {
	var (
		targets  []string
		message  string
		override bool
	)
	for _, p := range t.Pairings {
		if !cartHas(items, p.Trigger) {
			continue
		}
		if message == "" || (p.Override && !override) {
			message, override = p.Message, p.Override
		}
		targets = append(targets, p.Targets...)
	}
	if len(targets) == 0 {
		return Result{}
	}

	inCart := make(map[uint]bool, len(items))
	for _, it := range items {
		inCart[it.MenuItemId] = true
	}

	var candidates []model.MenuEntry
	for _, m := range menu {
		if inCart[m.ID] || !model.Flag(m.Available) {
			continue
		}
		if matchesAny(m.CategoryName(), targets) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return Result{}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].Badge == model.BadgePopular, candidates[j].Badge == model.BadgePopular
		if pi != pj {
			return pi
		}
		return candidates[i].DefaultPrice < candidates[j].DefaultPrice
	})
	if len(candidates) > constants.MAX_UPSELL_SUGGESTIONS {
		candidates = candidates[:constants.MAX_UPSELL_SUGGESTIONS]
	}
	return Result{Suggestions: candidates, Message: message}
}

func cartHas(items []cart.Item, trigger string) bool {
	trigger = strings.TrimSpace(trigger)
	for _, it := range items {
		if trigger != "" && strings.EqualFold(strings.TrimSpace(it.ProductType), trigger) {
			return true
		}
	}
	return false
}

func matchesAny(category string, targets []string) bool {
	for _, t := range targets {
		if contains(category, t) {
			return true
		}
	}
	return false
}

func contains(s, sub string) bool {
	return sub != "" && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
