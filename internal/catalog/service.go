package catalog

// Store owns the loaded catalog for a session. Items are fixed once loaded;
// only their stock can be overlaid from a persisted snapshot.
type Store interface {
	FindByID(id string) (Item, bool)
	// Items returns a copy of every item in load order.
	Items() []Item
	Len() int
	// RestoreStock overlays a persisted id to stock snapshot.
	RestoreStock(snapshot map[string]int)
	StockSnapshot() map[string]int
}
