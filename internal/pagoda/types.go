package pagoda

// Attribute-level filter keys for advanced search.
const (
	AttrFilterCleared          = 0
	AttrFilterEmpty            = 1
	AttrFilterNonEmpty         = 2
	AttrFilterTextContained    = 3
	AttrFilterTextNotContained = 4
	AttrFilterDuplicated       = 5
)

// Item-name filter keys for advanced search.
const (
	ItemFilterCleared          = 0
	ItemFilterTextContained    = 1
	ItemFilterTextNotContained = 2
)

// ModelRef identifies a model (entity type) by ID and name.
type ModelRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Model is one row of the model list.
type Model struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Note            string `json:"note"`
	ItemNamePattern string `json:"item_name_pattern"`
	Status          int    `json:"status"`
	IsToplevel      bool   `json:"is_toplevel"`
}

// ModelAttr is an attribute declared on a model.
type ModelAttr struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ModelDetail is a model together with its attribute declarations.
type ModelDetail struct {
	Model
	Attrs []ModelAttr `json:"attrs"`
}

// ItemRef identifies an item by ID and name.
type ItemRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Item is one row of an item list. The API calls the owning model the
// item's "schema".
type Item struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Model ModelRef `json:"schema"`
}

// ItemDetail is an item together with its attribute values. Attribute
// value shapes vary per attribute type, so they stay generic maps.
type ItemDetail struct {
	Item
	IsActive bool                     `json:"is_active"`
	Attrs    []map[string]interface{} `json:"attrs"`
}

// AttrFilter narrows an advanced search by one attribute.
type AttrFilter struct {
	Name      string `json:"name"`
	FilterKey int    `json:"filter_key"`
	Keyword   string `json:"keyword"`
}

// AdvancedSearchRequest is the client-side form of an advanced search.
type AdvancedSearchRequest struct {
	// ModelIDs selects which models to search.
	ModelIDs []int
	// Attrs lists the attribute filters; matching attribute values are
	// also included in the results.
	Attrs []AttrFilter
	// ItemFilterKey and ItemKeyword narrow the search by item name.
	ItemFilterKey int
	ItemKeyword   string
	// HasReferral asks for items referring to the results; ReferralName
	// narrows those referrers by name.
	HasReferral  bool
	ReferralName string
	// Limit defaults to 100 when zero.
	Limit  int
	Offset int
}

// AdvancedSearchResultItem is one match of an advanced search.
type AdvancedSearchResultItem struct {
	Entry     ItemRef                `json:"entry"`
	Entity    ModelRef               `json:"entity"`
	Attrs     map[string]interface{} `json:"attrs"`
	Referrals []Item                 `json:"referrals"`
}

// AdvancedSearchResult is the full advanced-search response.
type AdvancedSearchResult struct {
	TotalCount int                        `json:"total_count"`
	Values     []AdvancedSearchResultItem `json:"values"`
}
