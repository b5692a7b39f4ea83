package models

// All lists every table the service owns, in creation order.
func All() []interface{} {
	return []interface{}{
		&Tenant{},
		&OptionGroup{},
		&MenuItem{},
		&Order{},
		&OrderLine{},
		&StatusHistory{},
	}
}
