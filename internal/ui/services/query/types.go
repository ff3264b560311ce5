package query

import (
	"crmgrip/internal/domain"
)

// Row is a record as a list view shows it
type Row struct {
	Index  int
	Record *domain.Record
}

// Matcher decides whether a record passes the active filter
type Matcher func(*domain.Record) bool
