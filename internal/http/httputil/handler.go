package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler is the registration contract for route handlers. Root names
// the handler's path segment; SetRoutes attaches its endpoints to the public,
// private and admin groups.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}
