package domain

import "time"

// Asset product type constants (wire values fixed by the backend).
const (
	AssetTypeReturnable    = "Returnable"
	AssetTypeNonReturnable = "Non-returnable"
)

// Asset is an item in an HR account's inventory.
type Asset struct {
	ID              string    `json:"_id,omitempty"`
	ProductName     string    `json:"productName"`
	ProductType     string    `json:"productType"`
	ProductQuantity int       `json:"productQuantity"`
	HREmail         string    `json:"hrEmail"`
	Image           string    `json:"productImage,omitempty"`
	AddedDate       time.Time `json:"addedDate,omitempty"`
}

// Available reports whether the asset can currently be requested. The
// quantity is authoritative on the backend; this is a display projection only.
func (a Asset) Available() bool {
	return a.ProductQuantity > 0
}

// IsValidAssetType checks a product type against the closed wire set.
func IsValidAssetType(t string) bool {
	return t == AssetTypeReturnable || t == AssetTypeNonReturnable
}

// Package is an HR subscription tier limiting team size.
type Package struct {
	ID            string   `json:"_id,omitempty"`
	Name          string   `json:"name"`
	EmployeeLimit int      `json:"employeeLimit"`
	Price         float64  `json:"price"`
	Features      []string `json:"features,omitempty"`
}
