package schema

import "fmt"

// Scale is the number of decimal places used by a scaled integer.
// Example: Scale=8 means the integer value is scaled by 1e8.
type Scale int32

// Pow10 returns the multiplier for the scale.
func (s Scale) Pow10() int64 {
	v := int64(1)
	for i := Scale(0); i < s; i++ {
		v *= 10
	}
	return v
}

// ScaleSpec defines scaling for a symbol's numeric fields.
type ScaleSpec struct {
	PriceScale    Scale `json:"priceScale"`
	QuantityScale Scale `json:"quantityScale"`
}

// VenueID is the numeric identifier for a venue.
type VenueID uint16

// SymbolID is the numeric identifier for a symbol.
type SymbolID uint32

// AccountID is the numeric identifier for a trading account.
type AccountID uint32

// AssetID is the numeric identifier for an asset.
type AssetID uint32

// Venue describes a trading venue.
type Venue struct {
	ID   VenueID
	Name string
}

// Asset describes a balance-bearing asset.
type Asset struct {
	ID    AssetID
	Name  string
	Scale Scale
}

// Symbol describes a tradable instrument on one venue.
type Symbol struct {
	ID    SymbolID
	Venue VenueID
	Name  string
	Base  AssetID
	Quote AssetID
	Scale ScaleSpec
}

// Account describes a trading account.
type Account struct {
	ID   AccountID
	Name string
}

// Registry stores venue, asset, symbol and account mappings in a compact
// form. It is built once at startup and read-only afterwards.
type Registry struct {
	venues   []Venue
	assets   []Asset
	symbols  []Symbol
	accounts []Account

	venueByName   map[string]VenueID
	assetByName   map[string]AssetID
	symbolByName  map[string]SymbolID
	accountByName map[string]AccountID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		venueByName:   make(map[string]VenueID),
		assetByName:   make(map[string]AssetID),
		symbolByName:  make(map[string]SymbolID),
		accountByName: make(map[string]AccountID),
	}
}

// AddVenue registers a new venue and returns its ID.
func (r *Registry) AddVenue(name string) (VenueID, error) {
	if name == "" {
		return 0, fmt.Errorf("venue name is empty")
	}
	if id, ok := r.venueByName[name]; ok {
		return id, fmt.Errorf("venue already exists: %s", name)
	}
	id := VenueID(len(r.venues) + 1)
	r.venues = append(r.venues, Venue{ID: id, Name: name})
	r.venueByName[name] = id
	return id, nil
}

// AddAsset registers a new asset and returns its ID.
func (r *Registry) AddAsset(name string, scale Scale) (AssetID, error) {
	if name == "" {
		return 0, fmt.Errorf("asset name is empty")
	}
	if id, ok := r.assetByName[name]; ok {
		return id, fmt.Errorf("asset already exists: %s", name)
	}
	id := AssetID(len(r.assets) + 1)
	r.assets = append(r.assets, Asset{ID: id, Name: name, Scale: scale})
	r.assetByName[name] = id
	return id, nil
}

// AddSymbol registers a new symbol and returns its ID.
func (r *Registry) AddSymbol(name string, venueID VenueID, base, quote AssetID, scale ScaleSpec) (SymbolID, error) {
	if name == "" {
		return 0, fmt.Errorf("symbol name is empty")
	}
	if _, ok := r.Venue(venueID); !ok {
		return 0, fmt.Errorf("venue id not found: %d", venueID)
	}
	if _, ok := r.Asset(base); !ok {
		return 0, fmt.Errorf("base asset id not found: %d", base)
	}
	if _, ok := r.Asset(quote); !ok {
		return 0, fmt.Errorf("quote asset id not found: %d", quote)
	}
	key := symbolKey(name, venueID)
	if id, ok := r.symbolByName[key]; ok {
		return id, fmt.Errorf("symbol already exists: %s", name)
	}
	id := SymbolID(len(r.symbols) + 1)
	r.symbols = append(r.symbols, Symbol{
		ID:    id,
		Venue: venueID,
		Name:  name,
		Base:  base,
		Quote: quote,
		Scale: scale,
	})
	r.symbolByName[key] = id
	return id, nil
}

// AddAccount registers a new account and returns its ID.
func (r *Registry) AddAccount(name string) (AccountID, error) {
	if name == "" {
		return 0, fmt.Errorf("account name is empty")
	}
	if id, ok := r.accountByName[name]; ok {
		return id, fmt.Errorf("account already exists: %s", name)
	}
	id := AccountID(len(r.accounts) + 1)
	r.accounts = append(r.accounts, Account{ID: id, Name: name})
	r.accountByName[name] = id
	return id, nil
}

// Venue returns the venue for an ID.
func (r *Registry) Venue(id VenueID) (Venue, bool) {
	if id == 0 || int(id) > len(r.venues) {
		return Venue{}, false
	}
	return r.venues[id-1], true
}

// Asset returns the asset for an ID.
func (r *Registry) Asset(id AssetID) (Asset, bool) {
	if id == 0 || int(id) > len(r.assets) {
		return Asset{}, false
	}
	return r.assets[id-1], true
}

// Symbol returns the symbol for an ID.
func (r *Registry) Symbol(id SymbolID) (Symbol, bool) {
	if id == 0 || int(id) > len(r.symbols) {
		return Symbol{}, false
	}
	return r.symbols[id-1], true
}

// Account returns the account for an ID.
func (r *Registry) Account(id AccountID) (Account, bool) {
	if id == 0 || int(id) > len(r.accounts) {
		return Account{}, false
	}
	return r.accounts[id-1], true
}

// VenueIDByName resolves a venue name.
func (r *Registry) VenueIDByName(name string) (VenueID, bool) {
	id, ok := r.venueByName[name]
	return id, ok
}

// AssetIDByName resolves an asset name.
func (r *Registry) AssetIDByName(name string) (AssetID, bool) {
	id, ok := r.assetByName[name]
	return id, ok
}

// SymbolIDByName resolves a symbol name on a venue.
func (r *Registry) SymbolIDByName(name string, venueID VenueID) (SymbolID, bool) {
	id, ok := r.symbolByName[symbolKey(name, venueID)]
	return id, ok
}

// AccountIDByName resolves an account name.
func (r *Registry) AccountIDByName(name string) (AccountID, bool) {
	id, ok := r.accountByName[name]
	return id, ok
}

// Symbols returns all registered symbols.
func (r *Registry) Symbols() []Symbol {
	return r.symbols
}

// Accounts returns all registered accounts.
func (r *Registry) Accounts() []Account {
	return r.accounts
}

func symbolKey(name string, venueID VenueID) string {
	return fmt.Sprintf("%d/%s", venueID, name)
}

// NotionalAmount converts price*qty into a quote asset amount at the price
// scale, dividing out the quantity scale. Reports overflow.
func NotionalAmount(price Price, qty Quantity, qtyScale Scale) (Amount, bool) {
	n, overflow := MulNotional(price, qty)
	if overflow {
		return 0, true
	}
	return Amount(int64(n) / qtyScale.Pow10()), false
}
