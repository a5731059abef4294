package httptransport

import (
	"github.com/gin-gonic/gin"
)

// listPublicDomains 无需认证：列出可用的公共域名
func (h *Handler) listPublicDomains(c *gin.Context) {
	domains, err := h.store.ListPublicDomains()
	if err != nil {
		Fail(c, h.log, err)
		return
	}

	Success(c, gin.H{
		"domains":       h.cfg.Domains,
		"publicDomains": domains,
	})
}
