package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderOrganizationID names the request header selecting the active organization.
const HeaderOrganizationID = "X-Organization-ID"

// ActiveOrganization returns the organization a request targets: the
// organization_id query parameter, else the X-Organization-ID header.
func ActiveOrganization(c *gin.Context) string {
	if id := strings.TrimSpace(c.Query("organization_id")); id != "" {
		return id
	}
	return strings.TrimSpace(c.GetHeader(HeaderOrganizationID))
}
