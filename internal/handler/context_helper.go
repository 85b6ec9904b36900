package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/middleware"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

// requireActor returns the gateway-asserted caller or writes 401.
func requireActor(c *gin.Context) (string, bool) {
	actor := middleware.ActorID(c)
	if actor == "" {
		actor = strings.TrimSpace(c.GetHeader(middleware.ActorHeader))
	}
	if actor == "" {
		return "", false
	}
	return actor, true
}

func pathID(c *gin.Context, name string) (string, error) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, name+" is required")
	}
	return id, nil
}

func queryBool(c *gin.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, appErrors.Clone(appErrors.ErrValidation, name+" must be true or false")
	}
	return value, nil
}
