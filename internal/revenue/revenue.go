// Package revenue holds the settlement arithmetic applied to sold prints.
// Every value is integer cents; floats never touch money here.
package revenue

// Size is a print size as sold at checkout.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

func ParseSize(s string) (Size, bool) {
	switch Size(s) {
	case SizeSmall, SizeMedium, SizeLarge:
		return Size(s), true
	}
	return "", false
}

// Costs are the production-side costs of one line, cents per line (print,
// shipping and labor scale with quantity; the caller multiplies).
type Costs struct {
	Print    int64
	Shipping int64
	Labor    int64
}

// Per-unit production cost table. These are deliberately static: order
// items capture them at sale time so payout math never depends on mutable
// artwork state.
var unitCosts = map[Size]Costs{
	SizeSmall:  {Print: 400, Shipping: 500, Labor: 300},
	SizeMedium: {Print: 600, Shipping: 700, Labor: 300},
	SizeLarge:  {Print: 900, Shipping: 900, Labor: 400},
}

// Base sale price per size, before the per-artwork markup.
var basePrices = map[Size]int64{
	SizeSmall:  2999,
	SizeMedium: 4499,
	SizeLarge:  6499,
}

const (
	// Payment-processing fee: 2.9% + 30c, applied per line.
	feePercentBasisPoints = 290
	feeFixed              = 30

	// Flat hosting/platform charge per line.
	hostingFee = 100
)

// BasePrice returns the pre-markup unit price for a size.
func BasePrice(size Size) int64 {
	return basePrices[size]
}

// CostsForSize returns the per-unit production costs for a size.
func CostsForSize(size Size) Costs {
	return unitCosts[size]
}

// ProcessingFee approximates the provider's cut on an amount:
// round(amount * 2.9%) + 30, with half-up integer rounding.
func ProcessingFee(amount int64) int64 {
	return (amount*feePercentBasisPoints + 5000) / 10000
}

// WebsiteCost is the platform-side cost of a line: the processing fee on
// its total plus the flat hosting charge.
func WebsiteCost(lineTotal int64) int64 {
	return ProcessingFee(lineTotal) + hostingFee
}

// Breakdown is the settled economics of one sold line, all cents.
type Breakdown struct {
	PrintCost    int64 `json:"print_cost"`
	ShippingCost int64 `json:"shipping_cost"`
	LaborCost    int64 `json:"labor_cost"`
	WebsiteCost  int64 `json:"website_cost"`
	Expenses     int64 `json:"expenses"`
	Profit       int64 `json:"profit"`
	ArtistShare  int64 `json:"artist_share"`
	CompanyShare int64 `json:"company_share"`
}

// Split settles a line: expenses come off the top, profit clamps at zero,
// and what remains divides 50/50 with the artist share floored, so the odd
// cent always lands on the company. ArtistShare + CompanyShare == Profit
// for every input.
func Split(lineTotal, printCost, shippingCost, laborCost, websiteCost int64) Breakdown {
	expenses := printCost + shippingCost + laborCost + websiteCost
	profit := lineTotal - expenses
	if profit < 0 {
		profit = 0
	}
	artist := profit / 2
	return Breakdown{
		PrintCost:    printCost,
		ShippingCost: shippingCost,
		LaborCost:    laborCost,
		WebsiteCost:  websiteCost,
		Expenses:     expenses,
		Profit:       profit,
		ArtistShare:  artist,
		CompanyShare: profit - artist,
	}
}

// SplitForSize settles a line using the static cost table: per-unit costs
// scale with quantity, the website cost derives from the line total.
func SplitForSize(lineTotal int64, size Size, quantity int64) Breakdown {
	c := CostsForSize(size)
	return Split(
		lineTotal,
		c.Print*quantity,
		c.Shipping*quantity,
		c.Labor*quantity,
		WebsiteCost(lineTotal),
	)
}
