package middleware

import (
	"errors"

	apiError "mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/logging"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *apiError.APIError
		if !errors.As(err, &apiErr) {
			// raw errors never leak to the client
			apiErr = apiError.Internal(err)
		}

		log := logging.Ctx(c.Request.Context())
		if apiErr.Status >= 500 {
			log.Error().Err(apiErr.Internal).Str("path", c.FullPath()).Msg(apiErr.Message)
		} else {
			log.Info().Err(apiErr.Internal).Str("path", c.FullPath()).Msg(apiErr.Message)
		}

		c.AbortWithStatusJSON(apiErr.Status, apiErr)
	}
}
