package domain

// EntryRecord is an entry as stored and as sent over the wire. ID is nil for
// entries that were never written to a store.
type EntryRecord struct {
	ID       *uint64 `json:"eid,omitempty"      mapstructure:"eid"`
	Name     string  `json:"name"               mapstructure:"name"`
	Value    float64 `json:"value"              mapstructure:"value"`
	Date     string  `json:"date"               mapstructure:"date"`
	Category string  `json:"category,omitempty" mapstructure:"category"`
}

// CategoryRecord is a category with its entries as sent over the wire.
type CategoryRecord struct {
	Name    string        `json:"name"`
	Value   float64       `json:"value"`
	Entries []EntryRecord `json:"entries"`
}

// Elements holds the categories of a listed period in display order.
type Elements struct {
	Categories []CategoryRecord `json:"categories"`
}

// Response is the result of a command. Each field is optional; a response
// with none of them set carries nothing to display.
type Response struct {
	Error    *string      `json:"error,omitempty"`
	Elements *Elements    `json:"elements,omitempty"`
	Element  *EntryRecord `json:"element,omitempty"`
	Periods  []string     `json:"periods,omitempty"`
	ID       *uint64      `json:"id,omitempty"`
}

// ErrorResponse builds a response reporting a command-level failure.
func ErrorResponse(err error) *Response {
	msg := err.Error()
	return &Response{Error: &msg}
}
