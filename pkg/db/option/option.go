package option

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"donationhub/pkg/db/pagination"
)

// QueryOption mutates a gorm query before it executes. Options are applied in
// the order they are passed to the repository.
type QueryOption func(*gorm.DB) *gorm.DB

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	// Allow whitelists sortable columns; an unlisted column is ignored.
	Allow map[string]bool
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		col := sort.SortBy
		if col == "" {
			col = "created_at"
		}
		if sort.Allow != nil && !sort.Allow[col] {
			return tx
		}
		order := "ASC"
		if sort.OrderBy == "desc" || sort.OrderBy == "DESC" {
			order = "DESC"
		}
		return tx.Order(col + " " + order)
	}
}

// ApplyPagination applies keyset pagination for listings ordered newest
// first on (created_at, id). One extra row beyond the page size is fetched so
// the caller can tell whether more pages remain.
func ApplyPagination(p pagination.Pagination, cursor *pagination.Cursor) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if cursor != nil {
			tx = tx.Where("created_at < ? OR (created_at = ? AND id < ?)",
				cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return tx.Order("created_at DESC").Order("id DESC").Limit(p.PageSize() + 1)
	}
}

// WithLockingUpdate adds FOR UPDATE to the query so the selected rows stay
// locked for the remainder of the surrounding transaction.
func WithLockingUpdate() QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}

// LockingUpdate is the scope form of WithLockingUpdate, usable with
// tx.Scopes(...) to lock every query in a transaction.
func LockingUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

type Operator string

const (
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	NE  Operator = "<>"
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

func ApplyOperator(cond Condition) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		switch cond.Operator {
		case IN:
			return tx.Where(cond.Field+" IN ?", cond.Value)
		default:
			return tx.Where(cond.Field+" "+string(cond.Operator)+" ?", cond.Value)
		}
	}
}
