package api

import (
	"net/url"
	"strings"
)

// Filter is a single query parameter sent to the target API.
type Filter struct {
	Name  string
	Value string
}

// Filters are query parameters in the order they were given.
type Filters []Filter

// ParseFilters reads "name=value" pairs. A pair without "=" is a parameter
// with an empty value.
func ParseFilters(pairs []string) Filters {
	filters := make(Filters, 0, len(pairs))
	for _, pair := range pairs {
		name, value, _ := strings.Cut(pair, "=")
		filters = append(filters, Filter{Name: name, Value: value})
	}
	return filters
}

// Encode returns the filters as a query string, preserving their order.
func (f Filters) Encode() string {
	var b strings.Builder
	for i, filter := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(filter.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(filter.Value))
	}
	return b.String()
}

// AppendTo adds the filters to target, joining with "&" when target already
// has a query component and "?" otherwise.
func (f Filters) AppendTo(target string) string {
	if len(f) == 0 {
		return target
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + f.Encode()
}
