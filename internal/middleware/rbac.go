package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-scheduler/internal/models"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
	"github.com/noah-isme/campus-scheduler/pkg/response"
)

// RBAC restricts a route to the given roles. Only the listed roles pass;
// admin has no implicit access, so a route that admits admin lists
// RoleAdmin explicitly (as AdminOnly and DeptOrAdmin do).
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		for _, a := range allowed {
			if models.UserRole(a) == claims.Role {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// AdminOnly restricts a route to the admin role.
func AdminOnly() gin.HandlerFunc {
	return RBAC(string(models.RoleAdmin))
}

// DeptOrAdmin allows both admin and dept_head callers, leaving
// department scoping to EffectiveDepartment.
func DeptOrAdmin() gin.HandlerFunc {
	return RBAC(string(models.RoleAdmin), string(models.RoleDeptHead))
}

// EffectiveDepartment resolves the department a dept.* operation should
// run against. A dept_head is pinned to their own department -- any
// requested department that doesn't match theirs is a cross-department
// access attempt and is rejected. An admin may operate on any requested
// department, and must supply one explicitly since they have none of
// their own.
func EffectiveDepartment(c *gin.Context, requested string) (string, error) {
	claimsValue, exists := c.Get(ContextUserKey)
	if !exists {
		return "", appErrors.ErrUnauthorized
	}
	claims := claimsValue.(*models.JWTClaims)

	if claims.Role == models.RoleDeptHead {
		if claims.Department == nil || *claims.Department == "" {
			return "", appErrors.Clone(appErrors.ErrForbidden, "department head account has no department assigned")
		}
		if requested != "" && requested != *claims.Department {
			return "", appErrors.Clone(appErrors.ErrForbidden, "cross-department access denied")
		}
		return *claims.Department, nil
	}

	if requested == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "department is required")
	}
	return requested, nil
}
