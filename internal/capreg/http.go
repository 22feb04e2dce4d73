package capreg

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rizom-ai/brains-sub000/internal/apperrors"
	"github.com/rizom-ai/brains-sub000/internal/capabilities"
)

// AttachToRouter binds every registered API route to group, marshaling each
// request into the named tool invocation and applying success/error
// redirects (spec.md §6). invoke is supplied by the shell (it closes over
// the tool registry and the job/progress plumbing a tool handler needs).
func (r *Registrar) AttachToRouter(group *gin.RouterGroup, invoke func(c *gin.Context, route RegisteredRoute) (capabilities.ToolResponse, error)) {
	for _, route := range r.Routes() {
		route := route
		handler := func(c *gin.Context) {
			resp, err := invoke(c, route)
			if err != nil {
				if route.Definition.ErrorRedirect != "" {
					c.Redirect(http.StatusFound, route.Definition.ErrorRedirect)
					return
				}
				apperrors.HandleError(c, err)
				return
			}
			if !resp.Success {
				if route.Definition.ErrorRedirect != "" {
					c.Redirect(http.StatusFound, route.Definition.ErrorRedirect)
					return
				}
				apperrors.HandleError(c, apperrors.CapabilityError("tool", route.Definition.Tool, apperrors.Internal(resp.Error)))
				return
			}
			if route.Definition.SuccessRedirect != "" {
				c.Redirect(http.StatusFound, route.Definition.SuccessRedirect)
				return
			}
			c.JSON(http.StatusOK, resp.Result)
		}

		switch route.Definition.Method {
		case capabilities.MethodGET:
			group.GET(route.Definition.Path, handler)
		case capabilities.MethodPUT:
			group.PUT(route.Definition.Path, handler)
		case capabilities.MethodDELETE:
			group.DELETE(route.Definition.Path, handler)
		default:
			group.POST(route.Definition.Path, handler)
		}
	}
}
