package providerd

import "github.com/gin-gonic/gin"

// BasePath prefixes every provider route.
const BasePath = "/v1"

// SetupRoutes registers the provider API on r.
func SetupRoutes(r *gin.Engine, h Handler) {
	v1 := r.Group(BasePath)
	v1.POST("/bind", h.Bind)
	v1.DELETE("/bind/:session", h.Release)
	v1.POST("/ops", h.Operate)
	v1.POST("/interactions/:id", h.Interact)
}
