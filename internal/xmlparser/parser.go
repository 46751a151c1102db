package xmlparser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kosarica/crawler/internal/datefilter"
	"github.com/kosarica/crawler/internal/parsers/charset"
	"github.com/kosarica/crawler/internal/types"
)

// Candidate tag-name lists. Retailers publish the same price-transparency
// schema with inconsistent casing and, occasionally, with Hebrew element
// names instead of the government's reference English ones; every probe
// tries the English spelling(s) first, then the Hebrew ones, and takes
// whichever the document actually populated.
var (
	storesContainer = [][]string{{"Stores", "stores"}, {"Store", "store", "חנות"}}
	itemsContainer  = [][]string{{"Items", "items"}, {"Item", "item", "פריט"}}
	promosContainer = [][]string{{"Promotions", "promotions"}, {"Promotion", "promotion", "מבצע"}}
	// promoItemsContainer walks into a Promotion node's item list when the
	// schema wraps it (<Promotion><PromotionItems><Item>...). Flat
	// documents that hang <Item> directly off <Promotion> are handled
	// separately by promoItems, since find() only descends, it doesn't
	// also check the current level.
	promoItemsContainer = [][]string{{"PromotionItems", "Items", "items"}, {"Item", "item", "פריט"}}

	storeCodeTags  = []string{"StoreId", "StoreID", "storeid", "מספר_חנות"}
	storeNameTags  = []string{"StoreName", "storename", "שם_חנות"}
	addressTags    = []string{"Address", "address", "כתובת"}
	cityTags       = []string{"City", "city", "עיר"}
	chainIDTags    = []string{"ChainId", "ChainID", "chainid", "מספר_רשת"}
	subChainIDTags = []string{"SubChainId", "SubChainID", "subchainid", "מספר_תת_רשת"}

	barcodeTags       = []string{"ItemCode", "ItemCd", "Barcode", "barcode", "ברקוד"}
	itemNameTags      = []string{"ItemName", "ItemNm", "Name", "name", "שם_פריט"}
	manufacturerTags  = []string{"ManufacturerName", "ManufactureName", "Manufacturer", "manufacturer", "שם_יצרן"}
	unitQtyTags       = []string{"Quantity", "UnitQty", "QtyInPackage", "quantity"}
	unitOfMeasureTags = []string{"UnitOfMeasure", "UnitMeasure", "unitofmeasure", "יחידת_מידה"}
	quantityTags      = []string{"Quantity", "Content", "QtyInPackage", "quantity"}
	weightedFlagTags  = []string{"bIsWeighted", "BisWeighted", "IsWeighted", "isweighted"}
	imageURLTags      = []string{"ItemImage", "Image", "ImageUrl", "ImageURL", "Picture", "PictureUrl", "Photo", "PhotoUrl", "תמונה", "קישור_תמונה"}
	priceTags         = []string{"ItemPrice", "Price", "price", "מחיר"}
	unitPriceTags     = []string{"UnitOfMeasurePrice", "UnitPrice", "unitprice", "מחיר_ליחידה"}

	promoItemCodeTags = []string{"ItemCode", "ItemCd", "Barcode", "barcode"}
	promoPriceTags    = []string{"DiscountedPrice", "DiscountPrice", "discountedprice", "מחיר_מבצע"}
	promoStartTags    = []string{"PromotionStartDate", "DiscountStartDate", "StartDate", "promotionstartdate"}
	promoEndTags      = []string{"PromotionEndDate", "DiscountEndDate", "EndDate", "promotionenddate"}
)

// ParseFile parses one archive member's XML bytes into store metadata and
// product/price rows. promos, when non-nil, carries the entries parsed from
// the same retailer's promotions file(s) for this date so prices can be matched
// against active discounts; pass nil when parsing a promotions-only file
// or when the retailer publishes no separate promotions feed.
func ParseFile(xmlBytes []byte, promos []PromoEntry) (*types.ParseResult, error) {
	normalized, err := charset.Normalize(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("xmlparser: normalizing encoding: %w", err)
	}

	root, err := decodeXML(normalized)
	if err != nil {
		return nil, fmt.Errorf("xmlparser: %w", err)
	}

	store := extractStoreMetadata(root)
	rows, err := extractRows(root, indexPromos(promos))
	if err != nil {
		return nil, err
	}

	return &types.ParseResult{Store: store, Rows: rows}, nil
}

func extractStoreMetadata(root node) types.StoreMetadata {
	// Store fields usually sit directly on the document root or on a
	// single nested Store element; try both shapes.
	candidates := []node{root}
	candidates = append(candidates, root.find(storesContainer...)...)
	for _, name := range storesContainer[1] {
		candidates = append(candidates, root.children(name)...)
	}

	var meta types.StoreMetadata
	for _, n := range candidates {
		if v := n.field(storeCodeTags...); v != "" && meta.StoreCode == "" {
			meta.StoreCode = v
		}
		if v := n.field(storeNameTags...); v != "" && meta.Name == "" {
			meta.Name = v
		}
		if v := n.field(addressTags...); v != "" && meta.Address == "" {
			meta.Address = v
		}
		if v := n.field(cityTags...); v != "" && meta.City == "" {
			meta.City = v
		}
		if v := n.field(chainIDTags...); v != "" && meta.ChainID == "" {
			meta.ChainID = v
		}
		if v := n.field(subChainIDTags...); v != "" && meta.SubChainID == "" {
			meta.SubChainID = v
		}
	}
	return meta
}

// ParseStores parses a dedicated store-listing feed — the government
// schema's separate file enumerating every branch a chain operates,
// distinct from the single store header embedded in a price file — into
// one row per <Store> node.
func ParseStores(xmlBytes []byte) ([]types.StoreMetadata, error) {
	normalized, err := charset.Normalize(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("xmlparser: normalizing encoding: %w", err)
	}

	root, err := decodeXML(normalized)
	if err != nil {
		return nil, fmt.Errorf("xmlparser: %w", err)
	}

	storeNodes := root.find(storesContainer...)
	rows := make([]types.StoreMetadata, 0, len(storeNodes))
	for _, n := range storeNodes {
		code := n.field(storeCodeTags...)
		if code == "" {
			continue
		}
		rows = append(rows, types.StoreMetadata{
			StoreCode:  code,
			Name:       n.field(storeNameTags...),
			Address:    n.field(addressTags...),
			City:       n.field(cityTags...),
			ChainID:    n.field(chainIDTags...),
			SubChainID: n.field(subChainIDTags...),
		})
	}
	return rows, nil
}

func extractRows(root node, promoByBarcode map[string]PromoEntry) ([]types.ParsedRow, error) {
	items := root.find(itemsContainer...)
	rows := make([]types.ParsedRow, 0, len(items))

	for _, item := range items {
		barcode := item.field(barcodeTags...)
		if barcode == "" {
			continue
		}

		price, err := parsePrice(item.field(priceTags...))
		if err != nil {
			continue
		}

		row := types.ParsedRow{
			Barcode:       barcode,
			ItemName:      item.field(itemNameTags...),
			Manufacturer:  item.field(manufacturerTags...),
			UnitQty:       item.field(unitQtyTags...),
			UnitOfMeasure: item.field(unitOfMeasureTags...),
			ImageURL:      item.field(imageURLTags...),
			IsWeighted:    isWeightedFlag(item.field(weightedFlagTags...)),
			Price:         price,
		}
		if up, err := parsePrice(item.field(unitPriceTags...)); err == nil {
			row.UnitPrice = up
		}
		if qty, err := strconv.ParseFloat(strings.TrimSpace(item.field(quantityTags...)), 64); err == nil {
			row.Quantity = &qty
		}

		applyPromotion(&row, promoByBarcode)
		if promoByBarcode == nil {
			if pp, err := parsePrice(item.field(promoPriceTags...)); err == nil && pp > 0 && pp < price {
				row.IsOnSale = true
				row.PromoPrice = pp
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// PromoEntry is one parsed row of a retailer's promotions feed.
type PromoEntry struct {
	Barcode string
	Price   float64
	Start   *time.Time
	End     *time.Time
}

// ParsePromoFile parses a promotions-only XML file into PromoEntry rows.
// Each <Promotion> carries the discounted price and the promotion's
// start/end dates, but the barcodes it applies to live on nested <Item>
// children rather than on the Promotion node itself, so one Promotion
// typically expands into several PromoEntry rows sharing the same price
// and date range.
func ParsePromoFile(xmlBytes []byte, dateLocale string) ([]PromoEntry, error) {
	normalized, err := charset.Normalize(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("xmlparser: normalizing encoding: %w", err)
	}

	root, err := decodeXML(normalized)
	if err != nil {
		return nil, fmt.Errorf("xmlparser: %w", err)
	}

	var entries []PromoEntry
	for _, promo := range root.find(promosContainer...) {
		price, err := parsePrice(promo.field(promoPriceTags...))
		if err != nil {
			continue
		}

		var start, end *time.Time
		if raw := promo.field(promoStartTags...); raw != "" {
			if t, ok := datefilter.Parse(raw, dateLocale); ok {
				start = &t
			}
		}
		if raw := promo.field(promoEndTags...); raw != "" {
			if t, ok := datefilter.Parse(raw, dateLocale); ok {
				end = &t
			}
		}

		for _, item := range promoItems(promo) {
			barcode := item.field(promoItemCodeTags...)
			if barcode == "" {
				continue
			}
			entries = append(entries, PromoEntry{Barcode: barcode, Price: price, Start: start, End: end})
		}
	}
	return entries, nil
}

// promoItems returns a Promotion node's item list, trying the wrapped
// shape (<Promotion><PromotionItems><Item>...) first and falling back to
// <Item> hanging directly off <Promotion> for retailers whose feed skips
// the wrapper.
func promoItems(promo node) []node {
	if wrapped := promo.find(promoItemsContainer...); len(wrapped) > 0 {
		return wrapped
	}
	var direct []node
	for _, name := range []string{"Item", "item", "פריט"} {
		direct = append(direct, promo.children(name)...)
	}
	return direct
}

// isWeightedFlag reports whether a weighted-item flag field carries a
// truthy value. Retailers encode this as "1", "true", or "Y" with
// inconsistent casing.
func isWeightedFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "y":
		return true
	default:
		return false
	}
}

func indexPromos(promos []PromoEntry) map[string]PromoEntry {
	if promos == nil {
		return nil
	}
	idx := make(map[string]PromoEntry, len(promos))
	for _, p := range promos {
		idx[p.Barcode] = p
	}
	return idx
}

// applyPromotion decides whether a row is on sale: a row is on sale
// exactly when the matching promotion's discounted price is positive and
// strictly lower than its own price. (When no promotions feed was
// supplied, extractRows applies the same rule to a promo price field the
// item itself carries.) When the promotion price equals or exceeds the
// regular price, IsOnSale stays false so the regular price isn't double
// counted as its own promotion.
func applyPromotion(row *types.ParsedRow, promoByBarcode map[string]PromoEntry) {
	promo, ok := promoByBarcode[row.Barcode]
	if !ok {
		return
	}
	if promo.Price <= 0 || promo.Price >= row.Price {
		return
	}

	row.IsOnSale = true
	row.PromoPrice = promo.Price
	row.PromoStart = promo.Start
	row.PromoEnd = promo.End
}

// parsePrice normalizes a price string into a float. Retailers mix
// decimal comma and decimal point, and sometimes pad with currency
// symbols or stray whitespace; this strips everything but digits, '.',
// ',' and '-' before parsing, and treats a trailing comma-pair as the
// decimal separator when no '.' is present.
func parsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("xmlparser: empty price")
	}

	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if !strings.Contains(cleaned, ".") && strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("xmlparser: parsing price %q: %w", raw, err)
	}
	return v, nil
}
