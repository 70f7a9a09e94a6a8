// Package registry provides the plugin marketplace catalog.
//
// The registry is a read-mostly, ordered list of catalog entries. Each entry
// is identified by its (namespace, name) pair and carries the plugin
// metadata, its published versions and the latest version. Entries are
// added once at startup through Register, which refuses duplicate
// identities; after that the registry only answers queries.
//
// # Queries
//
//   - FindByIdentity: exact namespace/name lookup
//   - Search: case-insensitive substring match over name, description,
//     keywords and namespace, paginated, in catalog order
//   - Featured / ByCategory: filters in catalog order
//
// # Sources
//
// A catalog document is either a list of entries or an object with a
// "plugins" list, encoded as JSON or YAML:
//
//	{
//	  "plugins": [
//	    {
//	      "metadata": {"namespace": "acme", "name": "widget", ...},
//	      "versions": ["1.0", "1.1", "2.0"],
//	      "latestVersion": "2.0",
//	      "publishedAt": "2025-12-15T00:00:00Z"
//	    }
//	  ]
//	}
//
// Documents are loaded from the built-in catalog, a local file, an HTTP(S)
// feed or an S3 object; see ParseSource.
//
// # Usage
//
//	src, _ := registry.ParseSource("builtin", registry.SourceOptions{})
//	reg, err := registry.Load(ctx, logger, src)
//
//	res := reg.Search("claude", 1, 10)
//	fmt.Println(res.Total, "matches")
package registry
