// Package extras drives the step-by-step extras selection that precedes checkout.
package extras

import (
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/storefront-orders/cart"
	"github.com/yeremiapane/storefront-orders/models"
)

// Step is one (cart item, option group) pair the customer has to fill.
type Step struct {
	ItemIndex int                `json:"item_index"`
	ItemID    uint               `json:"item_id"`
	ItemName  string             `json:"item_name"`
	Slots     int                `json:"slots_required"`
	Group     models.OptionGroup `json:"group"`
}

// Groups indexes a tenant's option groups by id and key.
type Groups struct {
	byID  map[uint]models.OptionGroup
	byKey map[string]models.OptionGroup
}

func NewGroups(groups []models.OptionGroup) Groups {
	g := Groups{
		byID:  make(map[uint]models.OptionGroup, len(groups)),
		byKey: make(map[string]models.OptionGroup, len(groups)),
	}
	for _, og := range groups {
		g.byID[og.ID] = og
		g.byKey[og.Key] = og
	}
	return g
}

func (g Groups) ByID(id uint) (models.OptionGroup, bool) {
	og, ok := g.byID[id]
	return og, ok
}

func (g Groups) ByKey(key string) (models.OptionGroup, bool) {
	og, ok := g.byKey[key]
	return og, ok
}

// Plan lists the steps for a cart. Groups referenced by id come first, in cart
// order; the legacy flag groups follow, again in cart order. A group is planned
// at most once per item and items owing no slots are skipped.
func Plan(items []cart.Item, groups Groups, log logrus.FieldLogger) []Step {
	var steps []Step
	planned := make([]map[uint]bool, len(items))

	for i, it := range items {
		planned[i] = make(map[uint]bool)
		if it.SlotsRequired() <= 0 {
			continue
		}
		for _, gid := range it.ExtraGroupIDs {
			og, ok := groups.ByID(gid)
			if !ok {
				log.WithFields(logrus.Fields{"item_id": it.ID, "group_id": gid}).Warn("extras: unknown option group, skipping")
				continue
			}
			if planned[i][og.ID] {
				continue
			}
			planned[i][og.ID] = true
			steps = append(steps, newStep(i, it, og))
		}
	}

	for i, it := range items {
		if it.SlotsRequired() <= 0 {
			continue
		}
		for _, legacy := range []struct {
			flag bool
			key  string
		}{
			{it.RequiresGroupA, models.LegacyGroupA},
			{it.RequiresGroupB, models.LegacyGroupB},
		} {
			if !legacy.flag {
				continue
			}
			og, ok := groups.ByKey(legacy.key)
			if !ok {
				log.WithFields(logrus.Fields{"item_id": it.ID, "group_key": legacy.key}).Warn("extras: legacy option group not seeded, skipping")
				continue
			}
			if planned[i][og.ID] {
				continue
			}
			planned[i][og.ID] = true
			steps = append(steps, newStep(i, it, og))
		}
	}
	return steps
}

func newStep(index int, it cart.Item, og models.OptionGroup) Step {
	og.Options = append([]string(nil), og.Options...)
	return Step{
		ItemIndex: index,
		ItemID:    it.ID,
		ItemName:  it.Name,
		Slots:     it.SlotsRequired(),
		Group:     og,
	}
}
