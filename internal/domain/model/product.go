package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
)

// Metadata keys carried on catalog products and checkout line items.
const (
	MetaType          = "type"
	MetaFileKey       = "file_key"
	MetaVariantID     = "variant_id"
	MetaSyncVariantID = "sync_variant_id"
)

const physicalIDPrefix = "pf_"

type Product struct {
	ID        string            `json:"id"`
	ProductID string            `json:"product_id"`
	Name      string            `json:"name"`
	Image     string            `json:"image,omitempty"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	Metadata  map[string]string `json:"metadata"`
	Variants  []Variant         `json:"variants,omitempty"`
}

type Variant struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Image         string          `json:"image,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	VariantID     int64           `json:"variant_id"`
	SyncVariantID int64           `json:"sync_variant_id"`
}

func (p Product) Type() enums.ProductType {
	return enums.ParseProductType(p.Metadata[MetaType])
}

func (p Product) IsPhysical() bool {
	return p.Type() == enums.ProductTypePhysical
}

// WithVariant returns a copy of a physical product narrowed to one variant,
// keyed by the variant id so checkout can resolve it back.
func (p Product) WithVariant(v Variant) Product {
	meta := make(map[string]string, len(p.Metadata)+2)
	for k, val := range p.Metadata {
		meta[k] = val
	}
	meta[MetaVariantID] = strconv.FormatInt(v.VariantID, 10)
	meta[MetaSyncVariantID] = strconv.FormatInt(v.SyncVariantID, 10)

	out := p
	out.ID = v.ID
	out.Amount = v.Amount
	out.Metadata = meta
	out.Variants = nil
	if v.Image != "" {
		out.Image = v.Image
	}
	if v.Name != "" {
		out.Name = v.Name
	}
	return out
}

func PhysicalID(syncProductID int64) string {
	return physicalIDPrefix + strconv.FormatInt(syncProductID, 10)
}

func PhysicalVariantID(syncProductID, syncVariantID int64) string {
	return fmt.Sprintf("%s%d_%d", physicalIDPrefix, syncProductID, syncVariantID)
}

// ParsePhysicalID splits pf_<product> or pf_<product>_<variant>. syncVariantID
// is zero when the id names the product only.
func ParsePhysicalID(id string) (syncProductID, syncVariantID int64, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(id), physicalIDPrefix)
	if !found || rest == "" {
		return 0, 0, false
	}

	productPart, variantPart, hasVariant := strings.Cut(rest, "_")
	productID, err := strconv.ParseInt(productPart, 10, 64)
	if err != nil || productID <= 0 {
		return 0, 0, false
	}
	if !hasVariant {
		return productID, 0, true
	}

	variantID, err := strconv.ParseInt(variantPart, 10, 64)
	if err != nil || variantID <= 0 {
		return 0, 0, false
	}
	return productID, variantID, true
}
