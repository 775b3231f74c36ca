package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/social-feed/internal/apperr"
)

// storeErr 将仓储错误归类：记录不存在 -> ErrNotFound，其余 -> ErrPersistence
func storeErr(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return apperr.Persistence(op, err)
}
