// Package acl is the anti-corruption layer between the remote quote source
// and the domain.
//
// The remote source speaks its own dialect: a JSON array of post objects of
// which only the title matters here. Adapters in this package keep those
// wire DTOs unexported, translate them into domain.Quote values and map
// transport failures and HTTP statuses onto the domain error taxonomy, so
// nothing outside the package knows the remote shape.
//
// Error mapping applied by [MapHTTPError]:
//
//   - 404 → domain.ErrNotFound
//   - 400/422 and other 4xx → domain.ErrValidation
//   - 401/403, 429, 5xx, transport errors, open circuit → domain.ErrUnavailable
//
// [PostsClient] wraps all of these in a domain.SyncFetchError so the
// sync engine can tell a failed fetch from a failed write.
package acl
