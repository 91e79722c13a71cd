package podcasts

import (
	"podcast-app/internal/apperr"

	"gorm.io/gorm"
)

// ChangeStatus moves p to next only if its status is still what was read.
func ChangeStatus(db *gorm.DB, p *Podcast, next string) error {
	res := db.Model(&Podcast{}).
		Where("id = ? AND status = ?", p.ID, p.Status).
		Update("status", next)
	if res.Error != nil {
		return apperr.Wrap(res.Error, apperr.KindPersistence, "Failed to update podcast status")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("Podcast status was changed by another request; refresh and retry")
	}
	p.Status = next
	return nil
}
