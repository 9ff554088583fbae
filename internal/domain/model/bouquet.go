package model

// Size groups bouquets on the catalog menu.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeBig    Size = "big"
)

// Sizes lists catalog sizes in menu order.
var Sizes = []Size{SizeSmall, SizeMedium, SizeBig}

// ParseSize validates raw size value.
func ParseSize(raw string) (Size, bool) {
	for _, s := range Sizes {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// Title returns human readable size name.
func (s Size) Title() string {
	switch s {
	case SizeSmall:
		return "Small"
	case SizeMedium:
		return "Medium"
	case SizeBig:
		return "Big"
	default:
		return string(s)
	}
}

// Bouquet is a sellable catalog item.
type Bouquet struct {
	ID       int64
	Size     Size
	Number   int
	Title    string
	Price    int64
	ImageRef string
	InStock  bool
}
