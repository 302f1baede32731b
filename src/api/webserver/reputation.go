package webserver

import (
	"gorm.io/gorm"

	"github.com/jagnani73/daoscape-sub001/src/api/types"
)

// applyReputationChanges runs a batched additive reputation update in a
// single transaction. No floor or ceiling: reputation may go negative.
func applyReputationChanges(db *gorm.DB, changes []types.ReputationChange) error {
	if len(changes) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, ch := range changes {
			if err := tx.Model(&types.Member{}).
				Where("address = ?", ch.MemberAddress).
				Update("reputation", gorm.Expr("reputation + ?", ch.Change)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
