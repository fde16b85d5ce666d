package irpf

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrUnknownCategory is returned when parsing a category code that does not exist.
	ErrUnknownCategory = errors.New("unknown asset category")
	// ErrMissingCategory signals a category absent from a stats report. All
	// categories are seeded before computing taxes, so it is a bug.
	ErrMissingCategory = errors.New("category missing from stats")
)

// Category is the tax category of an asset.
type Category int

const (
	CategoryStock Category = iota + 1
	CategoryFII
	CategoryBDR
	CategoryStockSubscriptionRights
	CategoryFIISubscriptionRights
)

// Categories returns every category, in declaration order.
func Categories() []Category {
	return []Category{CategoryStock, CategoryFII, CategoryBDR, CategoryStockSubscriptionRights, CategoryFIISubscriptionRights}
}

// Code returns the stable identifier of the category used in files and databases.
func (c Category) Code() string {
	switch c {
	case CategoryStock:
		return "STOCK"
	case CategoryFII:
		return "FII"
	case CategoryBDR:
		return "BDR"
	case CategoryStockSubscriptionRights:
		return "STOCK_SUBSCRIPTION_RIGHTS"
	case CategoryFIISubscriptionRights:
		return "FII_SUBSCRIPTION_RIGHTS"
	default:
		return fmt.Sprintf("CATEGORY_%d", int(c))
	}
}

// String returns the display name of the category, as printed in reports.
func (c Category) String() string {
	switch c {
	case CategoryStock:
		return "AÇÃO"
	case CategoryFII:
		return "FII"
	case CategoryBDR:
		return "BDR"
	case CategoryStockSubscriptionRights:
		return "DIREITO DE SUBSCRIÇÃO (AÇÃO)"
	case CategoryFIISubscriptionRights:
		return "DIREITO DE SUBSCRIÇÃO (FII)"
	default:
		return c.Code()
	}
}

// ParseCategory parses a category from its code, case insensitive.
func ParseCategory(s string) (Category, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, c := range Categories() {
		if c.Code() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// ParseCategories parses a comma separated list of category codes.
func ParseCategories(s string) ([]Category, error) {
	var categories []Category
	for _, code := range strings.Split(s, ",") {
		if strings.TrimSpace(code) == "" {
			continue
		}
		c, err := ParseCategory(code)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func (c Category) MarshalJSON() ([]byte, error) { return json.Marshal(c.Code()) }

func (c *Category) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	cat, err := ParseCategory(code)
	if err != nil {
		return err
	}
	*c = cat
	return nil
}

// NormalizeTicker returns the canonical form of a ticker: upper case and
// without the fractional market "F" suffix (PETR4F trades as PETR4).
func NormalizeTicker(ticker string) string {
	return strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(ticker)), "F")
}

// Asset is a registered security.
type Asset struct {
	Ticker   string   `json:"ticker"`
	Name     string   `json:"name,omitempty"`
	CNPJ     string   `json:"cnpj,omitempty"`
	Category Category `json:"category"`
}

// NegotiationKind tells a buy from a sell.
type NegotiationKind int

const (
	KindBuy NegotiationKind = iota + 1
	KindSell
)

func (k NegotiationKind) String() string {
	switch k {
	case KindBuy:
		return "buy"
	case KindSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Negotiation is a buy or a sell executed on the exchange.
type Negotiation struct {
	Date        Date            `json:"date"`
	Kind        NegotiationKind `json:"-"`
	Ticker      string          `json:"ticker"`
	Institution string          `json:"institution,omitempty"`
	Quantity    Quantity        `json:"quantity"`
	Price       Money           `json:"price"`
	Tax         Money           `json:"tax,omitzero"`
	IRRF        Money           `json:"irrf,omitzero"`
	Note        string          `json:"note,omitempty"`
}

func (n Negotiation) IsBuy() bool  { return n.Kind == KindBuy }
func (n Negotiation) IsSell() bool { return n.Kind == KindSell }

// Total returns quantity times price, without taxes.
func (n Negotiation) Total() Money { return n.Price.Mul(n.Quantity) }

// Validate checks the negotiation is well formed.
func (n Negotiation) Validate() error {
	var errs []error
	if n.Kind != KindBuy && n.Kind != KindSell {
		errs = append(errs, fmt.Errorf("unknown negotiation kind %d", n.Kind))
	}
	if n.Ticker == "" {
		errs = append(errs, errors.New("missing ticker"))
	}
	if !n.Quantity.IsPositive() {
		errs = append(errs, fmt.Errorf("quantity must be positive, got %v", n.Quantity))
	}
	if n.Price.IsNegative() || n.Tax.IsNegative() || n.IRRF.IsNegative() {
		errs = append(errs, errors.New("price and taxes cannot be negative"))
	}
	return errors.Join(errs...)
}

// Flow tells incoming from outgoing earnings.
type Flow int

const (
	Credit Flow = iota + 1
	Debit
)

func (f Flow) String() string {
	switch f {
	case Credit:
		return "credit"
	case Debit:
		return "debit"
	default:
		return "unknown"
	}
}

func (f Flow) MarshalJSON() ([]byte, error) { return json.Marshal(f.String()) }

func (f *Flow) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "credit", "credito", "crédito":
		*f = Credit
	case "debit", "debito", "débito":
		*f = Debit
	default:
		return fmt.Errorf("unknown flow %q", s)
	}
	return nil
}

// Earnings kinds with a side effect on the asset accumulators.
const (
	EarningsFractionAuction  = "leilao_de_fracao"
	EarningsFractionInAssets = "fracao_em_ativos"
	EarningsBonusInAssets    = "bonificacao_em_ativos"
)

// Earnings is a provision or a movement reported by the custodian: dividends,
// interest on equity, fraction auctions and so on.
type Earnings struct {
	Date        Date     `json:"date"`
	Flow        Flow     `json:"flow"`
	Kind        string   `json:"kind"` // free text, as written by the custodian
	Ticker      string   `json:"ticker"`
	Institution string   `json:"institution,omitempty"`
	Quantity    Quantity `json:"quantity,omitzero"`
	Total       Money    `json:"total"`
}

func (e Earnings) IsCredit() bool { return e.Flow == Credit }
func (e Earnings) IsDebit() bool  { return e.Flow == Debit }

// KindSlug returns the kind without accents, lower case and words joined by
// underscores: "Leilão de Fração" becomes "leilao_de_fracao".
func (e Earnings) KindSlug() string { return Slugify(e.Kind) }

// Slugify strips accents and joins words of s with underscores.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	words := strings.FieldsFunc(strings.ToLower(plain), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "_")
}

// Bonus is a bonus in shares (bonificação) announced by a company.
type Bonus struct {
	ID         string          `json:"id"`
	Ticker     string          `json:"ticker"`
	DateCom    Date            `json:"dateCom"` // entitlement date
	Date       Date            `json:"date"`    // incorporation date
	Proportion decimal.Decimal `json:"proportion"`
	BaseValue  Money           `json:"baseValue"` // unit cost attributed to the new shares
}

// BonusInfo is the registry row computed from the position held on a bonus
// entitlement date.
type BonusInfo struct {
	BonusID      string   `json:"bonus"`
	Ticker       string   `json:"ticker"`
	Institution  string   `json:"institution,omitempty"`
	FromQuantity Quantity `json:"fromQuantity"`
	FromTotal    Money    `json:"fromTotal"`
	Quantity     Quantity `json:"quantity"`
	Total        Money    `json:"total"`
}

// Active reports whether the bonus grants any share.
func (b BonusInfo) Active() bool { return b.Quantity.IsPositive() }

// Equal reports whether both rows hold the same computed figures.
func (b BonusInfo) Equal(o BonusInfo) bool {
	return b.BonusID == o.BonusID && b.Ticker == o.Ticker && b.Institution == o.Institution &&
		b.FromQuantity.Equal(o.FromQuantity) && b.FromTotal.Equal(o.FromTotal) &&
		b.Quantity.Equal(o.Quantity) && b.Total.Equal(o.Total)
}

// Subscription is a capital increase offered to the shareholders.
//
// Subscribed shares are usually negotiated under a receipt ticker
// (XPTO13 for XPTO3) until they are incorporated.
type Subscription struct {
	ID            string          `json:"id"`
	Ticker        string          `json:"ticker"`
	ReceiptTicker string          `json:"receipt,omitempty"`
	DateCom       Date            `json:"dateCom"`
	Date          Date            `json:"date"`
	Proportion    decimal.Decimal `json:"proportion"`
	Price         Money           `json:"price"`
	Quantity      Quantity        `json:"quantity,omitzero"` // explicit subscribed quantity, zero to compute it
}

// SubscriptionInfo is the registry row computed on a subscription entitlement date.
type SubscriptionInfo struct {
	SubscriptionID string   `json:"subscription"`
	Ticker         string   `json:"ticker"`
	Institution    string   `json:"institution,omitempty"`
	FromQuantity   Quantity `json:"fromQuantity"`
	FromTotal      Money    `json:"fromTotal"`
	Quantity       Quantity `json:"quantity"`
	Total          Money    `json:"total"`
}

func (s SubscriptionInfo) Active() bool { return s.Quantity.IsPositive() }

func (s SubscriptionInfo) Equal(o SubscriptionInfo) bool {
	return s.SubscriptionID == o.SubscriptionID && s.Ticker == o.Ticker && s.Institution == o.Institution &&
		s.FromQuantity.Equal(o.FromQuantity) && s.FromTotal.Equal(o.FromTotal) &&
		s.Quantity.Equal(o.Quantity) && s.Total.Equal(o.Total)
}

// AssetEventKind is the kind of a corporate action rescaling a position.
type AssetEventKind int

const (
	Split  AssetEventKind = iota + 1 // desdobramento
	Inplit                           // grupamento
)

func (k AssetEventKind) String() string {
	switch k {
	case Split:
		return "split"
	case Inplit:
		return "inplit"
	default:
		return "unknown"
	}
}

// AssetEvent is a split or an inplit: every FactorFrom shares held on DateCom
// become FactorTo shares.
type AssetEvent struct {
	Ticker     string         `json:"ticker"`
	Date       Date           `json:"date,omitzero"` // announcement
	DateCom    Date           `json:"dateCom"`
	Kind       AssetEventKind `json:"-"`
	FactorFrom int            `json:"from"`
	FactorTo   int            `json:"to"`
}

func (e AssetEvent) Validate() error {
	var errs []error
	if e.Kind != Split && e.Kind != Inplit {
		errs = append(errs, fmt.Errorf("unknown event kind %d", e.Kind))
	}
	if e.FactorFrom <= 0 || e.FactorTo <= 0 {
		errs = append(errs, fmt.Errorf("factors must be positive, got %d:%d", e.FactorFrom, e.FactorTo))
	}
	if e.Kind == Split && e.FactorTo < e.FactorFrom {
		errs = append(errs, fmt.Errorf("split %d:%d reduces the quantity", e.FactorFrom, e.FactorTo))
	}
	if e.Kind == Inplit && e.FactorTo > e.FactorFrom {
		errs = append(errs, fmt.Errorf("inplit %d:%d increases the quantity", e.FactorFrom, e.FactorTo))
	}
	return errors.Join(errs...)
}

// AssetConvert moves a position from an origin ticker to a target ticker,
// every FactorFrom origin shares becoming FactorTo target shares.
type AssetConvert struct {
	Origin     string   `json:"origin"`
	Target     string   `json:"target"`
	Date       Date     `json:"date"`
	FactorFrom int      `json:"from"`
	FactorTo   int      `json:"to"`
	Limit      Quantity `json:"limit,omitzero"` // maximum origin quantity converted, zero for all
}

func (c AssetConvert) Validate() error {
	var errs []error
	if c.Origin == "" || c.Target == "" {
		errs = append(errs, errors.New("convert requires an origin and a target"))
	}
	if c.Origin == c.Target {
		errs = append(errs, fmt.Errorf("cannot convert %s into itself", c.Origin))
	}
	if c.FactorFrom <= 0 || c.FactorTo <= 0 {
		errs = append(errs, fmt.Errorf("factors must be positive, got %d:%d", c.FactorFrom, c.FactorTo))
	}
	if c.Limit.IsNegative() {
		errs = append(errs, errors.New("limit cannot be negative"))
	}
	return errors.Join(errs...)
}

// Position is a snapshot of a holding at the end of a month or a year.
type Position struct {
	Ticker        string        `json:"ticker"`
	Institution   string        `json:"institution,omitempty"`
	Date          Date          `json:"date"`
	Consolidation Consolidation `json:"consolidation"`
	Quantity      Quantity      `json:"quantity"`
	Total         Money         `json:"total"`
	Tax           Money         `json:"tax"`
	IsValid       bool          `json:"valid"`
}

// AvgPrice returns the average cost of a share.
func (p Position) AvgPrice() Money { return p.Total.Div(p.Quantity.Floor()) }

// Statistic is a snapshot of the carried over figures of a category at the end
// of a month or a year.
type Statistic struct {
	Date             Date          `json:"date"`
	Consolidation    Consolidation `json:"consolidation"`
	Category         Category      `json:"category"`
	Institution      string        `json:"institution,omitempty"`
	CumulativeLosses Money         `json:"cumulativeLosses"`
	ResidualTaxes    Money         `json:"residualTaxes"`
	Patrimony        Money         `json:"patrimony"`
	IsValid          bool          `json:"valid"`
}

// TaxRecord is a tax entry stored by the user or by the system.
type TaxRecord struct {
	ID          string          `json:"id"`
	Date        Date            `json:"date"` // month the tax is related to
	Category    Category        `json:"category"`
	Ticker      string          `json:"ticker,omitempty"`
	Total       Money           `json:"total"`
	Rate        decimal.Decimal `json:"rate"` // percent applied to Total, zero when Total is the tax itself
	Description string          `json:"description,omitempty"`
	Paid        bool            `json:"paid"`
	PaidOn      Date            `json:"paidOn,omitzero"`
}

// Value returns the tax amount of the record.
func (t TaxRecord) Value() Money {
	if t.Rate.IsZero() {
		return t.Total
	}
	return t.Total.Percent(t.Rate)
}
