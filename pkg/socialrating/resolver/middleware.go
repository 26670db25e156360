package resolver

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/socialrating/socialrating/pkg/socialrating/apperr"
	"github.com/socialrating/socialrating/pkg/socialrating/auth"
)

// ContextKeyChain is the key for the resolved chain in gin context
const ContextKeyChain = "resolver_chain"

// ChainFrom returns the resolved chain from the gin context, or nil when
// no resolver middleware has run yet
func ChainFrom(c *gin.Context) *Chain {
	value, exists := c.Get(ContextKeyChain)
	if !exists {
		return nil
	}
	return value.(*Chain)
}

// Middleware resolves the given steps from URL parameters, building on
// whatever chain an enclosing route group already resolved. Nested route
// groups each add their own step, so the walk stays one authorized level
// at a time and aborts at the first missing or forbidden ancestor.
func Middleware(db *gorm.DB, steps ...Step) gin.HandlerFunc {
	return func(c *gin.Context) {
		chain := ChainFrom(c)
		if chain == nil {
			chain = &Chain{Actor: auth.GetActor(c)}
			c.Set(ContextKeyChain, chain)
		}

		for _, step := range steps {
			if err := chain.Advance(db, step, c.Param(step.Param)); err != nil {
				apperr.Abort(c, err)
				return
			}
		}

		c.Next()
	}
}
