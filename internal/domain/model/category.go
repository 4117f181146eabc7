package model

type Category string

const (
	CategoryWearables  Category = "wearables"
	CategoryNames      Category = "names"
	CategoryThirdParty Category = "third-party"
)

// Categories lists every category with its own verdict cache.
var Categories = []Category{CategoryWearables, CategoryNames, CategoryThirdParty}

func (c Category) String() string {
	return string(c)
}

func (c Category) Valid() bool {
	switch c {
	case CategoryWearables, CategoryNames, CategoryThirdParty:
		return true
	}
	return false
}
