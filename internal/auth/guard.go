package auth

import (
	"github.com/GoArmGo/CineRadar/internal/domain"
	"github.com/google/uuid"
)

// Authorize разрешает доступ, только если владелец ресурса совпадает
// с проверенной личностью. Без ввода-вывода.
func Authorize(id Identity, ownerID uuid.UUID) error {
	if id.UserID == uuid.Nil || ownerID == uuid.Nil || id.UserID != ownerID {
		return domain.ErrNotOwner
	}
	return nil
}
