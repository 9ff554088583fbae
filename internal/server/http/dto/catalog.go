package dto

// BouquetResponse describes catalog entry.
type BouquetResponse struct {
	ID      int64  `json:"id"`
	Size    string `json:"size"`
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Price   string `json:"price"`
	InStock bool   `json:"in_stock"`
}
