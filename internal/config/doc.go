// Package config provides configuration for the marketplace CLI and server.
//
// The configuration is stored in marketplace.json in the marketplace home
// directory (default ~/.marketplace, overridden by --home or
// MARKETPLACE_HOME). A missing file means defaults.
//
// # Configuration File Structure
//
//	{
//	  "installDir": "installed-plugins",
//	  "catalog": {
//	    "sources": ["s3://acme-plugins/catalog.json", "extra.yaml"],
//	    "disableBuiltin": false,
//	    "timeout": "30s",
//	    "s3": {"region": "eu-west-1"}
//	  },
//	  "serve": {"addr": "127.0.0.1:8420", "watch": true, "debounce": "200ms"},
//	  "log": {"level": "info", "format": "json"}
//	}
//
// # Environment
//
// Every MARKETPLACE_* variable overrides the file: MARKETPLACE_CATALOG
// (comma-separated sources), MARKETPLACE_INSTALL_DIR, MARKETPLACE_ADDR,
// MARKETPLACE_LOG_LEVEL, MARKETPLACE_LOG_FORMAT, MARKETPLACE_S3_REGION and
// MARKETPLACE_S3_ENDPOINT.
//
// # Usage
//
//	home, err := config.ResolveHome("")
//	cfg, err := config.Load(home)
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Installing into", cfg.InstallPath())
package config
