package option

import "gorm.io/gorm"

// QueryOption customizes a repository query before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type orderBy struct {
	clause string
}

func (o orderBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(o.clause)
}

// WithOrderBy orders results by the given clause, e.g. "created_at DESC".
func WithOrderBy(clause string) QueryOption {
	return orderBy{clause: clause}
}

type limit struct {
	n int
}

func (l limit) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(l.n)
}

// WithLimit caps the number of returned rows.
func WithLimit(n int) QueryOption {
	return limit{n: n}
}
