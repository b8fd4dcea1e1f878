package mcpserver

// FormatContract describes the menu and policy file formats navgate reads.
const FormatContract = `# navgate File Formats

## Menu file (menu.path)

` + "```" + `yaml
menu:
  - id: 2                      # REQUIRED, positive, unique among top-level entries
    name: Clients              # REQUIRED, display label; the slug is derived from it
    url: /clients              # OPTIONAL, absolute; omit for a non-clickable group
    icon: clients              # OPTIONAL, unknown keys fall back to "circle"
    description: Tenants and owners
    required_permissions:      # OPTIONAL, any one of them grants visibility
      - view_tenant
      - view_owner
    sub_menus:
      - id: 1                  # REQUIRED, unique within the parent
        name: Tenants
        url: /clients/tenants  # REQUIRED, absolute
        required_permissions: [view_tenant]
` + "```" + `

Rules:

1. An entry without required_permissions is visible to everyone.
2. Only one level of nesting exists; sub_menus have no sub_menus.
3. An entry with neither url nor sub_menus is never active and renders inert.
4. The url "/" is active only on "/" itself; every other url is a plain
   prefix match against the current location.

## Policy files (policies.path)

One YAML file per actor, named after the actor:

` + "```" + `yaml
actor: alice          # REQUIRED, lowercase letters, digits, ".", "_" and "-"
superuser: false      # OPTIONAL, true sees every entry
permissions:          # OPTIONAL
  - view_tenant
  - view_lease
` + "```" + `

A policy that fails to parse grants nothing. Two files naming the same actor
conflict; the first one indexed wins.
`
