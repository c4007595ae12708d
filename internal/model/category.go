package model

// Category is a vendor category pair as it appears in the feed.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resolvable reports whether the pair can be used as a product category.
// The feed encodes "no category" as an empty id, "0", or an empty name.
func (c Category) Resolvable() bool {
	return c.ID != "" && c.ID != "0" && c.Name != ""
}
