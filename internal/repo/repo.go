// Package repo holds the gorm data access for users, products and orders.
package repo

import "gorm.io/gorm"

type GormRepo struct {
	DB *gorm.DB
}

// WithTx returns a copy of the repo bound to tx, so a service can run
// several repo calls inside one transaction.
func (r *GormRepo) WithTx(tx *gorm.DB) *GormRepo {
	return &GormRepo{DB: tx}
}
