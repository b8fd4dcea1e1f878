package menu

// Default returns the built-in dashboard navigation tree.
func Default() Tree {
	return Tree{
		{ID: 1, Name: "Dashboard", URL: "/", Icon: "dashboard", Description: "Portfolio overview"},
		{
			ID:                  2,
			Name:                "Clients",
			Icon:                "clients",
			Description:         "Tenants and owners",
			RequiredPermissions: []string{"view_tenant", "view_owner"},
			SubMenus: []SubNode{
				{ID: 1, Name: "Tenants", URL: "/clients/tenants", Icon: "tenants", Description: "Tenant records and contacts", RequiredPermissions: []string{"view_tenant"}},
				{ID: 2, Name: "Owners", URL: "/clients/owners", Icon: "owners", Description: "Property owners", RequiredPermissions: []string{"view_owner"}},
			},
		},
		{ID: 3, Name: "Leases", URL: "/leases", Icon: "leases", Description: "Lease dashboard", RequiredPermissions: []string{"view_lease"}},
		{
			ID:                  4,
			Name:                "Sales",
			URL:                 "/sales",
			Icon:                "sales",
			Description:         "Sales pipeline",
			RequiredPermissions: []string{"view_sales"},
			SubMenus: []SubNode{
				{ID: 1, Name: "Assignments", URL: "/sales/assignments", Description: "Assign units to agents", RequiredPermissions: []string{"view_sales_assignment"}},
				{ID: 2, Name: "Targets", URL: "/sales/targets", Description: "Monthly targets", RequiredPermissions: []string{"view_sales_target"}},
			},
		},
		{
			ID:                  5,
			Name:                "Finance",
			Icon:                "finance",
			Description:         "Payouts and penalties",
			RequiredPermissions: []string{"view_payout", "view_penalty"},
			SubMenus: []SubNode{
				{ID: 1, Name: "Payouts", URL: "/finance/payouts", Icon: "payouts", RequiredPermissions: []string{"view_payout"}},
				{ID: 2, Name: "Penalties", URL: "/finance/penalties", Icon: "penalties", RequiredPermissions: []string{"view_penalty"}},
			},
		},
		{
			ID:                  6,
			Name:                "Settings",
			URL:                 "/settings",
			Icon:                "settings",
			RequiredPermissions: []string{"manage_settings"},
			SubMenus: []SubNode{
				{ID: 1, Name: "Currencies", URL: "/settings/currencies", Icon: "currency", Description: "Currency and exchange rates", RequiredPermissions: []string{"manage_currency"}},
				{ID: 2, Name: "Penalty rules", URL: "/settings/penalties", Description: "Late payment penalty configuration", RequiredPermissions: []string{"manage_penalty"}},
				{ID: 3, Name: "Payout rules", URL: "/settings/payouts", Description: "Owner payout schedule", RequiredPermissions: []string{"manage_payout"}},
			},
		},
	}
}
