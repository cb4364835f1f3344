// Package rest is the wire layer for the Grünbeck cloud.
//
// It has three parts:
//
//   - An endpoint table (Table) describing every call the vendor app
//     makes: method, base, path, query, headers, body shape and the HTTP
//     statuses that count as success. Templates carry {placeholder}
//     tokens resolved from a Vars map; an unresolved placeholder is a
//     configuration error, never a malformed request on the wire.
//   - An Executor that owns the process-wide HTTP state: one client with
//     the cookie jar the B2C login threads state through, one without for
//     calls that must not send cookies, and redirect-following disabled
//     on both because the login flow reads 302 responses literally.
//   - The CloudError taxonomy shared by every layer above.
//
// # Resolving and executing
//
//	table := rest.NewTable(rest.TableConfig{})
//	req, err := table.Resolve(rest.GetDevices, rest.Vars{
//	    rest.VarAccessToken: token,
//	})
//	resp, err := executor.Do(ctx, req)
//
// # Test servers
//
// TableConfig accepts alternate bases so tests can point the whole client
// at httptest servers without touching any other layer.
package rest
