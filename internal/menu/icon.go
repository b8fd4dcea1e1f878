package menu

// DefaultIcon is rendered for nodes without a known icon key.
const DefaultIcon = "circle"

var icons = map[string]string{
	"dashboard": "layout-dashboard",
	"clients":   "users",
	"tenants":   "user",
	"owners":    "key-round",
	"leases":    "file-text",
	"sales":     "trending-up",
	"finance":   "wallet",
	"payouts":   "banknote",
	"penalties": "gavel",
	"settings":  "settings",
	"currency":  "coins",
}

// Icon resolves an icon key to the asset name used by the rendering layer.
func Icon(key string) string {
	if name, ok := icons[key]; ok {
		return name
	}
	return DefaultIcon
}
