// Package htsticket models the htsget ticket: the JSON payload that
// tells a client where and how to fetch the actual data bytes.
package htsticket

import (
	"encoding/json"
	"fmt"
)

// URL classes defined by the htsget protocol.
const (
	ClassHeader = "header"
	ClassBody   = "body"
)

// Headers carries the HTTP headers a client must send when fetching a
// ticketed URL.
type Headers struct {
	Range string `json:"Range,omitempty"`
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return new(Headers)
}

// SetRangeHeader sets an inclusive byte range.
func (h *Headers) SetRangeHeader(start int64, end int64) *Headers {
	h.Range = fmt.Sprintf("bytes=%d-%d", start, end)
	return h
}

// URL is a single entry in the ticket's url list.
type URL struct {
	URL     string   `json:"url"`
	Headers *Headers `json:"headers,omitempty"`
	Class   string   `json:"class,omitempty"`
}

func NewURL() *URL {
	return new(URL)
}

func (u *URL) SetURL(url string) *URL {
	u.URL = url
	return u
}

func (u *URL) SetHeaders(headers *Headers) *URL {
	u.Headers = headers
	return u
}

// SetClassHeader marks this URL as delivering file-header bytes.
func (u *URL) SetClassHeader() *URL {
	u.Class = ClassHeader
	return u
}

// SetClassBody marks this URL as delivering record bytes.
func (u *URL) SetClassBody() *URL {
	u.Class = ClassBody
	return u
}

// Container is the inner "htsget" object of a ticket.
type Container struct {
	Format string `json:"format"`
	URLS   []*URL `json:"urls"`
}

// Ticket is a complete ticket response payload. It is immutable once
// serialized; identical inputs always serialize identically.
type Ticket struct {
	Htsget *Container `json:"htsget"`
}

// NewTicket assembles a ticket for the given format (upper-cased per
// protocol) and URL list.
func NewTicket(format string, urls []*URL) *Ticket {
	return &Ticket{Htsget: &Container{Format: format, URLS: urls}}
}

// Serialize renders the ticket as a JSON string. encoding/json emits
// struct fields in declaration order, which keeps the payload
// deterministic for cache correctness.
func (t *Ticket) Serialize() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("serializing ticket: %w", err)
	}
	return string(data), nil
}
