package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func paramID(c *gin.Context, name string) uint {
	id, _ := strconv.ParseUint(c.Param(name), 10, 32)
	return uint(id)
}
