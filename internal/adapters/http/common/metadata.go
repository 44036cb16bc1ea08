package common

import "github.com/gin-gonic/gin"

// RiskMetadata collects the client context the risk engine scores on.
// Absent headers are omitted rather than sent empty.
func RiskMetadata(c *gin.Context) map[string]string {
	md := map[string]string{
		"client_ip": c.ClientIP(),
	}
	if v := c.GetHeader("User-Agent"); v != "" {
		md["user_agent"] = v
	}
	if v := c.GetHeader("X-Ip-Country"); v != "" {
		md["ip_country"] = v
	}
	if v := c.GetHeader("X-User-Country"); v != "" {
		md["user_country"] = v
	}
	if v := c.GetHeader("X-Email-Domain"); v != "" {
		md["email_domain"] = v
	}
	return md
}
