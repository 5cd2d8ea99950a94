package browser

// Repo stores live browser clients by ID.
type Repo interface {
	Upsert(c *Client) error
	Get(id string) (*Client, error)
	Delete(id string) error
	// DeleteWhere removes the clients expired reports true for and returns how many it removed.
	DeleteWhere(expired func(*Client) bool) int
}
