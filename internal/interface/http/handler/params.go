package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// paramID 解析路径中的正整数ID
func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Newf(apperrors.ErrCodeInvalidParams, "%s不合法", name)
	}
	return uint(id), nil
}
